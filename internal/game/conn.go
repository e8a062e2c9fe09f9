package game

// Conn 是到单个客户端的出站连接句柄。
// 实现方必须保证 Send 不阻塞游戏逻辑（内部缓冲或丢弃），
// 且对同一连接的写入不会交错
type Conn interface {
	// Send 发送一条已编码的消息
	Send(data []byte) error
	// IsActive 连接是否仍然可写
	IsActive() bool
}
