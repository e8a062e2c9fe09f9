package game

import (
	"log"
	"math/rand"
	"time"

	"github.com/realityexpander/guess-a-sketch/internal/protocol"
	"github.com/realityexpander/guess-a-sketch/internal/words"
)

// Phase 房间所处的游戏阶段
type Phase int

const (
	PhaseInitial Phase = iota // 房间刚创建，还没有玩家
	PhaseWaitingForPlayers
	PhaseWaitingForStart
	PhaseNewRound
	PhaseRoundInProgress
	PhaseRoundEnded
)

// 倒计时广播的步长
const countdownTick = time.Second

// 每回合发给画画玩家的候选词数量
const wordsToPickCount = 3

var phaseNames = map[Phase]string{
	PhaseInitial:           "INITIAL",
	PhaseWaitingForPlayers: "WAITING_FOR_PLAYERS",
	PhaseWaitingForStart:   "WAITING_FOR_START",
	PhaseNewRound:          "NEW_ROUND",
	PhaseRoundInProgress:   "ROUND_IN_PROGRESS",
	PhaseRoundEnded:        "ROUND_ENDED",
}

// String 返回阶段在协议里使用的名字
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "UNKNOWN"
}

// transitionToLocked 切换阶段并执行入口动作。调用方必须持有 r.mu
func (r *Room) transitionToLocked(next Phase) {
	if r.killed {
		return
	}
	log.Printf("🔄 房间 %s 阶段切换: %s -> %s", r.name, r.phase, next)
	r.phase = next

	switch next {
	case PhaseWaitingForPlayers:
		r.enterWaitingForPlayersLocked()
	case PhaseWaitingForStart:
		r.enterWaitingForStartLocked()
	case PhaseNewRound:
		r.enterNewRoundLocked()
	case PhaseRoundInProgress:
		r.enterRoundInProgressLocked()
	case PhaseRoundEnded:
		r.enterRoundEndedLocked()
	}
}

func (r *Room) enterWaitingForPlayersLocked() {
	r.stopCountdownLocked()
	update := protocol.NewGamePhaseUpdate(PhaseWaitingForPlayers.String(), 0, "")
	r.broadcastLocked(protocol.MustEncode(update))
}

func (r *Room) enterWaitingForStartLocked() {
	r.startCountdownLocked(r.cfg.WaitingForStartDelayDuration())
}

func (r *Room) enterNewRoundLocked() {
	r.curRoundDrawData = nil
	r.lastDrawData = nil
	r.wordToGuess = ""
	r.curWords = r.words.RandomWords(wordsToPickCount)

	r.proceedToNextDrawingPlayerLocked()
	r.startCountdownLocked(r.cfg.NewRoundDelayDuration())

	if r.drawingPlayer != nil {
		pick := &protocol.WordsToPick{Type: protocol.TypeWordsToPick, Words: r.curWords}
		_ = r.drawingPlayer.Send(protocol.MustEncode(pick))
	}
	r.broadcastPlayersListLocked()
}

func (r *Room) enterRoundInProgressLocked() {
	if r.drawingPlayer == nil {
		log.Printf("⚠️ 房间 %s 进入 ROUND_IN_PROGRESS 时没有画画玩家，跳过本回合开始", r.name)
		return
	}

	r.winningPlayers = make(map[string]struct{})

	// 画画玩家超时没选词就替他随机选一个
	if r.wordToGuess == "" {
		if len(r.curWords) > 0 {
			r.wordToGuess = r.curWords[rand.Intn(len(r.curWords))]
		} else {
			r.wordToGuess = r.words.RandomWord()
		}
	}

	drawer := r.drawingPlayer
	masked := protocol.MustEncode(&protocol.GameState{
		Type:                  protocol.TypeGameState,
		DrawingPlayerName:     drawer.Name,
		DrawingPlayerClientID: drawer.ClientID,
		WordToGuess:           words.MaskAsUnderscores(r.wordToGuess),
	})
	revealed := protocol.MustEncode(&protocol.GameState{
		Type:                  protocol.TypeGameState,
		DrawingPlayerName:     drawer.Name,
		DrawingPlayerClientID: drawer.ClientID,
		WordToGuess:           r.wordToGuess,
	})
	r.broadcastExceptLocked(masked, drawer.ClientID)
	_ = drawer.Send(revealed)

	r.startCountdownLocked(r.cfg.RoundInProgressDelayDuration())
}

func (r *Room) enterRoundEndedLocked() {
	r.finishOffDrawingLocked()

	if len(r.winningPlayers) == 0 && r.drawingPlayer != nil {
		r.drawingPlayer.AddScore(-r.cfg.NoGuessPenalty)
		log.Printf("📉 房间 %s 无人猜中，%s 被扣 %d 分", r.name, r.drawingPlayer.Name, r.cfg.NoGuessPenalty)
	}
	r.broadcastPlayersListLocked()
	r.recordScoresLocked()

	if r.wordToGuess != "" {
		reveal := &protocol.SetWordToGuess{
			Type:        protocol.TypeSetWordToGuess,
			WordToGuess: r.wordToGuess,
			RoomName:    r.name,
		}
		r.broadcastLocked(protocol.MustEncode(reveal))
	}

	r.startCountdownLocked(r.cfg.RoundEndedDelayDuration())
}

// proceedToNextDrawingPlayerLocked 轮换画画玩家：按加入顺序依次选取，越界回绕到 0
func (r *Room) proceedToNextDrawingPlayerLocked() {
	for _, p := range r.players {
		p.SetDrawing(false)
	}
	if len(r.players) == 0 {
		r.drawingPlayer = nil
		return
	}
	if r.drawingPlayerIndex >= len(r.players) {
		r.drawingPlayerIndex = 0
	}
	r.drawingPlayer = r.players[r.drawingPlayerIndex]
	r.drawingPlayer.SetDrawing(true)
	r.drawingPlayerIndex++
}

// finishOffDrawingLocked 回合结束时画笔还落着就补一个抬笔事件，避免客户端画布悬空
func (r *Room) finishOffDrawingLocked() {
	if r.lastDrawData == nil || len(r.curRoundDrawData) == 0 {
		return
	}
	if r.lastDrawData.MotionEvent != protocol.MotionEventDown {
		return
	}
	up := *r.lastDrawData
	up.MotionEvent = protocol.MotionEventUp
	r.broadcastLocked(protocol.MustEncode(&up))
}

// startCountdownLocked 启动当前阶段的倒计时：先广播带阶段名的更新，
// 之后每秒广播一次只含剩余毫秒数的更新，归零时推进到下一阶段。
// 已有的倒计时会先被取消
func (r *Room) startCountdownLocked(d time.Duration) {
	r.stopCountdownLocked()

	stop := make(chan struct{})
	r.countdownStop = stop
	r.phaseStartedAt = time.Now()

	drawerName := ""
	if r.drawingPlayer != nil {
		drawerName = r.drawingPlayer.Name
	}
	update := protocol.NewGamePhaseUpdate(r.phase.String(), d.Milliseconds(), drawerName)
	r.broadcastLocked(protocol.MustEncode(update))

	go r.runCountdown(r.phase, d, stop)
}

// stopCountdownLocked 取消正在运行的倒计时，幂等
func (r *Room) stopCountdownLocked() {
	if r.countdownStop != nil {
		close(r.countdownStop)
		r.countdownStop = nil
	}
}

func (r *Room) runCountdown(phase Phase, d time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(countdownTick)
	defer ticker.Stop()

	remaining := d
	for remaining > 0 {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining -= countdownTick
			if remaining <= 0 {
				break
			}
			// 纯倒计时更新不带阶段名
			tick := &protocol.GamePhaseUpdate{
				Type:                 protocol.TypeGamePhaseUpdate,
				CountdownTimerMillis: remaining.Milliseconds(),
			}
			r.broadcast(protocol.MustEncode(tick))
		}
	}
	r.advanceFromCountdown(phase, stop)
}

// advanceFromCountdown 倒计时归零后的阶段推进。
// 只有当该倒计时仍是房间当前的倒计时时才生效，避免被取消的旧计时器串台
func (r *Room) advanceFromCountdown(phase Phase, stop chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.killed || r.countdownStop != stop || r.phase != phase {
		return
	}
	r.countdownStop = nil

	switch phase {
	case PhaseWaitingForStart:
		r.transitionToLocked(PhaseNewRound)
	case PhaseNewRound:
		r.transitionToLocked(PhaseRoundInProgress)
	case PhaseRoundInProgress:
		r.transitionToLocked(PhaseRoundEnded)
	case PhaseRoundEnded:
		r.transitionToLocked(PhaseNewRound)
	default:
		r.transitionToLocked(PhaseWaitingForPlayers)
	}
}

// currentPhaseDurationLocked 返回当前阶段的完整倒计时时长，供后加入的玩家同步
func (r *Room) currentPhaseDurationLocked() time.Duration {
	switch r.phase {
	case PhaseWaitingForStart:
		return r.cfg.WaitingForStartDelayDuration()
	case PhaseNewRound:
		return r.cfg.NewRoundDelayDuration()
	case PhaseRoundInProgress:
		return r.cfg.RoundInProgressDelayDuration()
	case PhaseRoundEnded:
		return r.cfg.RoundEndedDelayDuration()
	default:
		return 0
	}
}
