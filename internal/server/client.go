package server

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/realityexpander/guess-a-sketch/internal/protocol"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（WebSocket 层 pong 等待时间，应用层心跳另算）
	pongWait = 60 * time.Second

	// WebSocket 层 ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小
	maxMessageSize = 8192

	// 发送缓冲区大小
	sendBufferSize = 256
)

// Client 代表一个 WebSocket 连接。实现 game.Conn，
// 游戏逻辑通过 Send 异步下发消息，不会被慢客户端阻塞
type Client struct {
	ID string // 客户端唯一 ID，重连时复用

	server *Server
	conn   *websocket.Conn
	send   chan []byte

	mu     sync.RWMutex
	closed bool
}

// NewClient 创建新客户端
func NewClient(s *Server, conn *websocket.Conn, clientID string) *Client {
	return &Client{
		ID:     clientID,
		server: s,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
}

// ReadPump 从 WebSocket 读取消息
func (c *Client) ReadPump() {
	defer func() {
		c.handleDisconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("读取错误: %v", err)
			}
			break
		}

		msg, err := protocol.Decode(message)
		if err != nil {
			log.Printf("消息解析错误: %v", err)
			c.SendError(protocol.ErrCodeInvalidMessage)
			continue
		}

		c.server.route(c, msg)
	}
}

// WritePump 向 WebSocket 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send 发送一条已编码消息，实现 game.Conn
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil
	}
	overflow := false
	select {
	case c.send <- data:
	default:
		overflow = true
	}
	c.mu.RUnlock()

	if overflow {
		// 发送缓冲区已满，关闭连接
		log.Printf("客户端 %s 发送缓冲区已满", c.ID)
		c.Close()
	}
	return nil
}

// IsActive 连接是否仍然可写，实现 game.Conn
func (c *Client) IsActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// SendError 下发一条游戏错误
func (c *Client) SendError(code int) {
	_ = c.Send(protocol.MustEncode(protocol.NewGameError(code)))
}

// handleDisconnect 处理断开连接：玩家进入宽限期而不是立即移除，
// 断线重连可以无损恢复
func (c *Client) handleDisconnect() {
	c.Close()
	if c.server.unregisterClient(c) {
		c.server.registry.DisconnectPlayer(c.ID, false)
	}
}

// Close 关闭客户端连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
