package game

import (
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/realityexpander/guess-a-sketch/internal/apperrors"
	"github.com/realityexpander/guess-a-sketch/internal/config"
	"github.com/realityexpander/guess-a-sketch/internal/words"
)

// JoinCheck 加入前置检查的结果
type JoinCheck int

const (
	JoinRoomNotFound JoinCheck = iota // 房间不存在
	JoinRoomFull                      // 房间已满
	JoinOKRejoin                      // 同名玩家在房间里，按重连处理
	JoinOKNew                         // 可以作为新玩家加入
)

// RoomInfo 房间列表里的一项
type RoomInfo struct {
	RoomName    string `json:"roomName"`
	MaxPlayers  int    `json:"maxPlayers"`
	PlayerCount int    `json:"playerCount"`
}

// Registry 维护全部房间和在线玩家的索引。
// 自身的锁只保护两张 map，不会在持锁时调用房间方法，避免和房间锁互相等待
type Registry struct {
	cfg      *config.GameConfig
	words    *words.Source
	recorder ScoreRecorder

	mu      sync.RWMutex
	rooms   map[string]*Room
	players map[string]*Player
}

// NewRegistry 创建注册表。recorder 可以为 nil，表示不记录排行榜
func NewRegistry(cfg *config.GameConfig, src *words.Source, recorder ScoreRecorder) *Registry {
	return &Registry{
		cfg:      cfg,
		words:    src,
		recorder: recorder,
		rooms:    make(map[string]*Room),
		players:  make(map[string]*Player),
	}
}

// CreateRoom 创建房间。maxPlayers 必须在配置允许的区间内，房间名不能重复
func (reg *Registry) CreateRoom(name string, maxPlayers int) error {
	if maxPlayers < reg.cfg.MinPlayers {
		return apperrors.ErrTooFewPlayers
	}
	if maxPlayers > reg.cfg.MaxPlayersCap {
		return apperrors.ErrTooManyPlayers
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.rooms[name]; exists {
		return apperrors.ErrRoomExists
	}
	reg.rooms[name] = newRoom(name, maxPlayers, reg.cfg, reg.words, reg, reg.recorder)
	log.Printf("🏠 房间 %s 创建成功，人数上限 %d", name, maxPlayers)
	return nil
}

// GetRoom 按名字查找房间
func (reg *Registry) GetRoom(name string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[name]
	return room, ok
}

// RoomInfos 返回房间列表。searchQuery 非空时按房间名模糊过滤（忽略大小写）
// 并按房间名排序；空查询原样返回，不排序
func (reg *Registry) RoomInfos(searchQuery string) []RoomInfo {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	query := strings.ToLower(strings.TrimSpace(searchQuery))
	for _, room := range rooms {
		if query != "" && !strings.Contains(strings.ToLower(room.Name()), query) {
			continue
		}
		infos = append(infos, RoomInfo{
			RoomName:    room.Name(),
			MaxPlayers:  room.MaxPlayers(),
			PlayerCount: room.PlayerCount(),
		})
	}
	if query != "" {
		sort.Slice(infos, func(i, j int) bool { return infos[i].RoomName < infos[j].RoomName })
	}
	return infos
}

// CheckJoin 加入房间前置检查，HTTP 接口在升级 WebSocket 前先调它
func (reg *Registry) CheckJoin(roomName, playerName string) JoinCheck {
	room, ok := reg.GetRoom(roomName)
	if !ok {
		return JoinRoomNotFound
	}
	if room.ContainsPlayerName(playerName) {
		return JoinOKRejoin
	}
	if room.SeatedCount() >= room.MaxPlayers() {
		return JoinRoomFull
	}
	return JoinOKNew
}

// AddPlayerToRoom 把玩家加入指定房间并登记到全局索引
func (reg *Registry) AddPlayerToRoom(roomName, clientID, playerName string, conn Conn) (*Player, error) {
	room, ok := reg.GetRoom(roomName)
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}

	player, err := room.AddPlayer(clientID, playerName, conn)
	if err != nil {
		return nil, err
	}

	reg.mu.Lock()
	reg.players[clientID] = player
	reg.mu.Unlock()
	return player, nil
}

// GetPlayer 按 clientID 查找在线玩家
func (reg *Registry) GetPlayer(clientID string) (*Player, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	p, ok := reg.players[clientID]
	return p, ok
}

// RoomOfPlayer 返回玩家所在的房间
func (reg *Registry) RoomOfPlayer(clientID string) (*Room, bool) {
	p, ok := reg.GetPlayer(clientID)
	if !ok {
		return nil, false
	}
	return reg.GetRoom(p.RoomName())
}

// ReceivePong 处理一条 pong 应答。玩家此前已被标记离线时，
// 视为迟到的心跳，把他重新拉回原房间（宽限期内的重连路径）
func (reg *Registry) ReceivePong(clientID string, conn Conn) {
	p, ok := reg.GetPlayer(clientID)
	if !ok {
		return
	}
	if wasOffline := p.ReceivedPong(); !wasOffline {
		return
	}
	room, ok := reg.GetRoom(p.RoomName())
	if !ok {
		return
	}
	if _, err := room.AddPlayer(p.ClientID, p.Name, conn); err != nil {
		log.Printf("⚠️ 玩家 %s (%s) 迟到心跳重连失败: %v", p.Name, clientID, err)
	}
}

// DisconnectPlayer 把玩家移出房间。immediate 为 true 时跳过宽限期
func (reg *Registry) DisconnectPlayer(clientID string, immediate bool) {
	room, ok := reg.RoomOfPlayer(clientID)
	if !ok {
		return
	}
	room.SchedulePlayerRemoval(clientID, immediate)
}

// Shutdown 销毁全部房间，停止所有计时器和心跳循环
func (reg *Registry) Shutdown() {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.RUnlock()

	for _, room := range rooms {
		room.Kill()
	}
}

func (reg *Registry) unregisterPlayer(clientID string) {
	reg.mu.Lock()
	delete(reg.players, clientID)
	reg.mu.Unlock()
}

func (reg *Registry) unregisterRoom(name string) {
	reg.mu.Lock()
	delete(reg.rooms, name)
	reg.mu.Unlock()
}
