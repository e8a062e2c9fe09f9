//go:build !production

package testutil

import (
	"sync"

	"github.com/realityexpander/guess-a-sketch/internal/protocol"
)

// RecordingConn 记录所有发出消息的 game.Conn 实现（用于不需要断言调用次数的测试）
type RecordingConn struct {
	mu       sync.Mutex
	active   bool
	messages [][]byte
}

// NewRecordingConn 创建一个活跃的记录连接
func NewRecordingConn() *RecordingConn {
	return &RecordingConn{active: true}
}

func (c *RecordingConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// 发送方可能复用缓冲区，存一份拷贝
	buf := make([]byte, len(data))
	copy(buf, data)
	c.messages = append(c.messages, buf)
	return nil
}

func (c *RecordingConn) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SetActive 切换连接活跃状态，模拟断线
func (c *RecordingConn) SetActive(active bool) {
	c.mu.Lock()
	c.active = active
	c.mu.Unlock()
}

// Messages 返回已发送消息的快照
func (c *RecordingConn) Messages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.messages))
	copy(out, c.messages)
	return out
}

// MessagesOfType 返回指定类型的已解码消息
func (c *RecordingConn) MessagesOfType(msgType protocol.MessageType) []any {
	var out []any
	for _, raw := range c.Messages() {
		msg, err := decodeServerMessage(raw)
		if err != nil {
			continue
		}
		if typeOf(msg) == msgType {
			out = append(out, msg)
		}
	}
	return out
}

// CountOfType 返回指定类型消息的条数
func (c *RecordingConn) CountOfType(msgType protocol.MessageType) int {
	return len(c.MessagesOfType(msgType))
}

// Reset 清空已记录的消息
func (c *RecordingConn) Reset() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}
