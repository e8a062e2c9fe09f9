package game

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/realityexpander/guess-a-sketch/internal/apperrors"
	"github.com/realityexpander/guess-a-sketch/internal/config"
	"github.com/realityexpander/guess-a-sketch/internal/protocol"
	"github.com/realityexpander/guess-a-sketch/internal/words"
)

// exitRecord 保存宽限期内离开玩家的快照，重连时按原位置放回
type exitRecord struct {
	player *Player
	index  int
}

// Room 一个游戏房间。所有可变状态由 mu 保护，
// 阶段切换、倒计时推进、玩家增删、消息处理都在这把锁下串行执行
type Room struct {
	name       string
	maxPlayers int

	cfg      *config.GameConfig
	words    *words.Source
	registry *Registry
	recorder ScoreRecorder

	mu      sync.Mutex
	killed  bool
	players []*Player
	phase   Phase

	drawingPlayer      *Player
	drawingPlayerIndex int

	wordToGuess    string
	curWords       []string
	winningPlayers map[string]struct{} // clientID 集合，本回合已猜对的玩家

	curRoundDrawData [][]byte
	lastDrawData     *protocol.DrawData

	countdownStop  chan struct{}
	phaseStartedAt time.Time

	exiting      map[string]*exitRecord
	removeTimers map[string]*time.Timer
}

func newRoom(name string, maxPlayers int, cfg *config.GameConfig, src *words.Source, reg *Registry, recorder ScoreRecorder) *Room {
	return &Room{
		name:           name,
		maxPlayers:     maxPlayers,
		cfg:            cfg,
		words:          src,
		registry:       reg,
		recorder:       recorder,
		phase:          PhaseInitial,
		winningPlayers: make(map[string]struct{}),
		exiting:        make(map[string]*exitRecord),
		removeTimers:   make(map[string]*time.Timer),
	}
}

// Name 返回房间名
func (r *Room) Name() string { return r.name }

// MaxPlayers 返回房间人数上限
func (r *Room) MaxPlayers() int { return r.maxPlayers }

// Phase 返回当前游戏阶段
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// PlayerCount 返回当前在房间里的玩家数（不含宽限期内离开的）
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// ContainsPlayerName 房间里是否有叫这个名字的玩家（含宽限期内离开的）
func (r *Room) ContainsPlayerName(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.Name == name {
			return true
		}
	}
	for _, ex := range r.exiting {
		if ex.player.Name == name {
			return true
		}
	}
	return false
}

// SeatedCount 已占用的座位数：在场玩家加上宽限期内保留的座位
func (r *Room) SeatedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) + len(r.exiting)
}

// ContainsClientID 房间里是否有这个客户端（含宽限期内离开的）
func (r *Room) ContainsClientID(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exiting[clientID]; ok {
		return true
	}
	return r.indexOfLocked(clientID) != -1
}

// DrawingPlayer 返回当前画画玩家，可能为 nil
func (r *Room) DrawingPlayer() *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drawingPlayer
}

// AddPlayer 把玩家加入房间。同一 clientID 的三种情况：
// 宽限期内重连按原位置放回并恢复画画身份；还在列表里的换掉连接；
// 否则按新玩家追加到末尾。满员时返回 ErrRoomFull
func (r *Room) AddPlayer(clientID, name string, conn Conn) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.killed {
		return nil, apperrors.ErrRoomNotFound
	}

	// 宽限期内重连
	if ex, ok := r.exiting[clientID]; ok {
		return r.rejoinPlayerLocked(ex, conn), nil
	}

	// 连接断开但还没触发移除，直接换连接
	if idx := r.indexOfLocked(clientID); idx != -1 {
		p := r.players[idx]
		p.SetConn(conn)
		r.startPingingLocked(p)
		r.sendJoinStateLocked(p)
		r.sendCurRoundDrawDataLocked(p)
		log.Printf("🔁 玩家 %s (%s) 更换连接重新加入房间 %s", p.Name, clientID, r.name)
		return p, nil
	}

	// 宽限期内离开的玩家仍占着座位，新玩家不能顶掉
	if len(r.players)+len(r.exiting) >= r.maxPlayers {
		return nil, apperrors.ErrRoomFull
	}

	p := NewPlayer(clientID, name, conn)
	p.SetRoomName(r.name)
	r.players = append(r.players, p)
	r.startPingingLocked(p)
	log.Printf("👤 玩家 %s (%s) 加入房间 %s (%d/%d)", name, clientID, r.name, len(r.players), r.maxPlayers)

	switch {
	case len(r.players) == 1:
		r.transitionToLocked(PhaseWaitingForPlayers)
	case len(r.players) == r.cfg.MinPlayers && r.phase == PhaseWaitingForPlayers:
		r.shufflePlayersLocked()
		r.transitionToLocked(PhaseWaitingForStart)
	case len(r.players) == r.maxPlayers && r.phase == PhaseWaitingForStart:
		r.shufflePlayersLocked()
		r.transitionToLocked(PhaseNewRound)
	}

	announcement := protocol.NewAnnouncement(
		fmt.Sprintf("%s joined the party!", name),
		time.Now().UnixMilli(),
		protocol.AnnouncementPlayerJoinedRoom,
	)
	r.broadcastLocked(protocol.MustEncode(announcement))
	r.broadcastPlayersListLocked()
	r.sendJoinStateLocked(p)
	r.sendCurRoundDrawDataLocked(p)

	return p, nil
}

func (r *Room) rejoinPlayerLocked(ex *exitRecord, conn Conn) *Player {
	p := ex.player
	delete(r.exiting, p.ClientID)
	if t, ok := r.removeTimers[p.ClientID]; ok {
		t.Stop()
		delete(r.removeTimers, p.ClientID)
	}

	p.SetConn(conn)
	p.SetDrawing(r.drawingPlayer != nil && r.drawingPlayer.ClientID == p.ClientID)

	idx := ex.index
	if idx > len(r.players) {
		idx = len(r.players)
	}
	r.players = append(r.players, nil)
	copy(r.players[idx+1:], r.players[idx:])
	r.players[idx] = p

	r.startPingingLocked(p)
	log.Printf("✅ 玩家 %s (%s) 在宽限期内重连回房间 %s", p.Name, p.ClientID, r.name)

	// 房间因人数不足停了的话，人回来就重新开始
	if len(r.players) == r.cfg.MinPlayers && r.phase == PhaseWaitingForPlayers {
		r.transitionToLocked(PhaseWaitingForStart)
	}

	announcement := protocol.NewAnnouncement(
		fmt.Sprintf("%s is back in the party!", p.Name),
		time.Now().UnixMilli(),
		protocol.AnnouncementPlayerJoinedRoom,
	)
	r.broadcastLocked(protocol.MustEncode(announcement))
	r.broadcastPlayersListLocked()
	r.sendJoinStateLocked(p)
	r.sendCurRoundDrawDataLocked(p)

	return p
}

func (r *Room) startPingingLocked(p *Player) {
	clientID := p.ClientID
	p.StartPinging(r.cfg.PingIntervalDuration(), func() {
		r.SchedulePlayerRemoval(clientID, false)
	})
}

func (r *Room) shufflePlayersLocked() {
	rand.Shuffle(len(r.players), func(i, j int) {
		r.players[i], r.players[j] = r.players[j], r.players[i]
	})
}

// sendJoinStateLocked 把当前阶段和游戏状态同步给刚加入的玩家
func (r *Room) sendJoinStateLocked(p *Player) {
	drawerName := ""
	if r.drawingPlayer != nil {
		drawerName = r.drawingPlayer.Name
	}
	update := protocol.NewGamePhaseUpdate(
		r.phase.String(),
		r.currentPhaseDurationLocked().Milliseconds(),
		drawerName,
	)
	_ = p.Send(protocol.MustEncode(update))

	if r.wordToGuess == "" || r.drawingPlayer == nil {
		return
	}
	word := r.wordToGuess
	// 猜词玩家在回合结束前只能看到掩码
	if p.ClientID != r.drawingPlayer.ClientID && r.phase != PhaseRoundEnded {
		word = words.MaskAsUnderscores(word)
	}
	state := &protocol.GameState{
		Type:                  protocol.TypeGameState,
		DrawingPlayerName:     r.drawingPlayer.Name,
		DrawingPlayerClientID: r.drawingPlayer.ClientID,
		WordToGuess:           word,
	}
	_ = p.Send(protocol.MustEncode(state))
}

func (r *Room) sendCurRoundDrawDataLocked(p *Player) {
	if r.phase != PhaseRoundInProgress && r.phase != PhaseRoundEnded {
		return
	}
	if len(r.curRoundDrawData) == 0 {
		return
	}
	replay := &protocol.CurRoundDrawData{Type: protocol.TypeCurRoundDrawData}
	for _, raw := range r.curRoundDrawData {
		replay.Data = append(replay.Data, raw)
	}
	_ = p.Send(protocol.MustEncode(replay))
}

// SchedulePlayerRemoval 把玩家移出活跃列表。immediate 为 true 时立刻永久移除，
// 否则保留一份快照，宽限期内重连可原样恢复，超时后才永久移除
func (r *Room) SchedulePlayerRemoval(clientID string, immediate bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.killed {
		return
	}

	idx := r.indexOfLocked(clientID)
	if idx == -1 {
		// 已在宽限期里，主动断开时直接转永久移除
		if _, ok := r.exiting[clientID]; ok && immediate {
			r.finalizeRemovalLocked(clientID)
		}
		return
	}

	p := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	p.StopPinging()

	if immediate {
		r.registry.unregisterPlayer(clientID)
		log.Printf("👋 玩家 %s (%s) 离开房间 %s", p.Name, clientID, r.name)
	} else {
		r.exiting[clientID] = &exitRecord{player: p, index: idx}
		r.removeTimers[clientID] = time.AfterFunc(r.cfg.PlayerExitDelayDuration(), func() {
			r.finalizeRemoval(clientID)
		})
		log.Printf("⏳ 玩家 %s (%s) 掉线，房间 %s 保留 %v 宽限期", p.Name, clientID, r.name, r.cfg.PlayerExitDelayDuration())
	}

	announcement := protocol.NewAnnouncement(
		fmt.Sprintf("%s left the party :(", p.Name),
		time.Now().UnixMilli(),
		protocol.AnnouncementPlayerExitedRoom,
	)
	r.broadcastLocked(protocol.MustEncode(announcement))
	r.broadcastPlayersListLocked()

	switch len(r.players) {
	case 1:
		r.transitionToLocked(PhaseWaitingForPlayers)
	case 0:
		r.killLocked()
	}
}

func (r *Room) finalizeRemoval(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.killed {
		return
	}
	r.finalizeRemovalLocked(clientID)
}

func (r *Room) finalizeRemovalLocked(clientID string) {
	ex, ok := r.exiting[clientID]
	if !ok {
		return
	}
	delete(r.exiting, clientID)
	if t, ok := r.removeTimers[clientID]; ok {
		t.Stop()
		delete(r.removeTimers, clientID)
	}
	r.registry.unregisterPlayer(clientID)
	log.Printf("🗑️ 玩家 %s (%s) 宽限期结束，从房间 %s 永久移除", ex.player.Name, clientID, r.name)
}

// Kill 终止房间：取消所有计时器并从注册表注销
func (r *Room) Kill() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.killLocked()
}

func (r *Room) killLocked() {
	if r.killed {
		return
	}
	r.killed = true

	r.stopCountdownLocked()
	for clientID, t := range r.removeTimers {
		t.Stop()
		delete(r.removeTimers, clientID)
	}
	for clientID := range r.exiting {
		r.registry.unregisterPlayer(clientID)
		delete(r.exiting, clientID)
	}
	for _, p := range r.players {
		p.StopPinging()
		r.registry.unregisterPlayer(p.ClientID)
	}
	r.players = nil
	r.registry.unregisterRoom(r.name)
	log.Printf("💀 房间 %s 已销毁", r.name)
}

func (r *Room) indexOfLocked(clientID string) int {
	for i, p := range r.players {
		if p.ClientID == clientID {
			return i
		}
	}
	return -1
}

// --- 广播 ---

func (r *Room) broadcast(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(data)
}

func (r *Room) broadcastLocked(data []byte) {
	for _, p := range r.players {
		_ = p.Send(data)
	}
}

func (r *Room) broadcastExceptLocked(data []byte, exceptClientID string) {
	for _, p := range r.players {
		if p.ClientID == exceptClientID {
			continue
		}
		_ = p.Send(data)
	}
}

// broadcastPlayersListLocked 按分数排名后广播玩家列表
func (r *Room) broadcastPlayersListLocked() {
	ranked := make([]*Player, len(r.players))
	copy(ranked, r.players)
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].Score() > ranked[j-1].Score(); j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	list := &protocol.PlayersList{Type: protocol.TypePlayersList}
	for i, p := range ranked {
		p.setRank(i + 1)
		list.Players = append(list.Players, p.Data())
	}
	r.broadcastLocked(protocol.MustEncode(list))
}

// recordScoresLocked 把当前累计分数异步写入排行榜
func (r *Room) recordScoresLocked() {
	if r.recorder == nil {
		return
	}
	scores := make(map[string]int, len(r.players))
	for _, p := range r.players {
		scores[p.Name] = p.Score()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := r.recorder.RecordScores(ctx, scores); err != nil {
			log.Printf("⚠️ 排行榜写入失败: %v", err)
		}
	}()
}
