package game

import (
	"log"
	"sync"
	"time"

	"github.com/realityexpander/guess-a-sketch/internal/protocol"
)

// Player 表示一个已加入房间的玩家。
// 除 ClientID 和 Name 外的所有字段都由 mu 保护，
// 因为连接 goroutine、ping 循环和房间逻辑会并发访问
type Player struct {
	ClientID string
	Name     string

	mu        sync.RWMutex
	conn      Conn
	roomName  string
	isDrawing bool
	score     int
	rank      int

	// 存活探测状态
	online     bool
	lastPingAt time.Time
	lastPongAt time.Time

	pingStop chan struct{}
}

// NewPlayer 创建一个在线的新玩家
func NewPlayer(clientID, name string, conn Conn) *Player {
	return &Player{
		ClientID: clientID,
		Name:     name,
		conn:     conn,
		online:   true,
	}
}

// Send 向该玩家发送一条已编码消息，连接缺失时静默丢弃
func (p *Player) Send(data []byte) error {
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil {
		return nil
	}
	return conn.Send(data)
}

// SetConn 替换底层连接（断线重连时换新）
func (p *Player) SetConn(conn Conn) {
	p.mu.Lock()
	p.conn = conn
	p.online = true
	p.mu.Unlock()
}

// RoomName 返回玩家最后加入的房间名
func (p *Player) RoomName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.roomName
}

// SetRoomName 记录玩家所属房间
func (p *Player) SetRoomName(name string) {
	p.mu.Lock()
	p.roomName = name
	p.mu.Unlock()
}

// IsOnline 玩家当前是否被视为在线
func (p *Player) IsOnline() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.online
}

// IsDrawing 玩家本回合是否为绘画者
func (p *Player) IsDrawing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isDrawing
}

// SetDrawing 标记/取消绘画者身份
func (p *Player) SetDrawing(drawing bool) {
	p.mu.Lock()
	p.isDrawing = drawing
	p.mu.Unlock()
}

// Score 返回累计得分
func (p *Player) Score() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.score
}

// AddScore 累加得分（可为负，惩罚时用）
func (p *Player) AddScore(delta int) {
	p.mu.Lock()
	p.score += delta
	p.mu.Unlock()
}

// Rank 返回最近一次广播玩家列表时的名次
func (p *Player) Rank() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rank
}

func (p *Player) setRank(rank int) {
	p.mu.Lock()
	p.rank = rank
	p.mu.Unlock()
}

// Data 生成用于玩家列表广播的快照
func (p *Player) Data() protocol.PlayerData {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return protocol.PlayerData{
		PlayerName: p.Name,
		IsDrawing:  p.isDrawing,
		Score:      p.score,
		Rank:       p.rank,
	}
}

// ReceivedPong 记录一次 pong 应答并将玩家标回在线。
// 返回玩家此前是否处于离线状态，调用方据此决定是否触发重回房间
func (p *Player) ReceivedPong() (wasOffline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	wasOffline = !p.online
	p.lastPongAt = time.Now()
	p.online = true
	return wasOffline
}

// StartPinging 启动存活探测循环：每隔 interval 发送一次 ping，
// 若上一次 ping 之后 interval 内没有收到 pong，则将玩家标记为离线
// 并调用 onTimeout（通常用于调度延迟移除），随后退出循环。
// 再次调用会替换掉仍在运行的旧循环，重连后可借此重启探测
func (p *Player) StartPinging(interval time.Duration, onTimeout func()) {
	p.mu.Lock()
	if p.pingStop != nil {
		close(p.pingStop)
	}
	stop := make(chan struct{})
	p.pingStop = stop
	p.lastPongAt = time.Now()
	p.mu.Unlock()

	go p.pingLoop(interval, onTimeout, stop)
}

// StopPinging 终止存活探测循环，幂等
func (p *Player) StopPinging() {
	p.mu.Lock()
	stop := p.pingStop
	p.pingStop = nil
	p.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

func (p *Player) pingLoop(interval time.Duration, onTimeout func(), stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.sendPing()

		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		if p.pingStop != stop {
			// 循环已被新一轮探测替换
			p.mu.Unlock()
			return
		}
		timedOut := p.lastPingAt.Sub(p.lastPongAt) > interval
		if timedOut {
			p.online = false
			p.pingStop = nil
		}
		p.mu.Unlock()

		if timedOut {
			log.Printf("💔 玩家 %s (%s) ping 超时，标记离线", p.Name, p.ClientID)
			if onTimeout != nil {
				onTimeout()
			}
			return
		}
	}
}

func (p *Player) sendPing() {
	data, err := protocol.Encode(&protocol.Ping{Type: protocol.TypePing})
	if err != nil {
		return
	}
	p.mu.Lock()
	p.lastPingAt = time.Now()
	p.mu.Unlock()
	_ = p.Send(data)
}
