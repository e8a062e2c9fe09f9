package server

import (
	"log"
	"net/http"

	"github.com/google/uuid"
)

// handleWebSocket 处理画板 WebSocket 连接。
// 客户端带上自己持久化的 clientId 就能在断线后复用身份重连
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket 升级失败: %v", err)
		return
	}

	client := NewClient(s, conn, clientID)
	s.registerClient(client)
	log.Printf("✅ 客户端 %s 已连接", clientID)

	// 启动客户端读写协程
	go client.ReadPump()
	go client.WritePump()
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// registerClient 注册客户端。同一 clientId 的旧连接先关掉
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if old, ok := s.clients[client.ID]; ok && old != client {
		old.Close()
	}
	s.clients[client.ID] = client
}

// unregisterClient 注销客户端。连接已被同 ID 的新连接顶替时返回 false，
// 调用方据此跳过掉线处理，避免把刚重连的玩家再踢出去
func (s *Server) unregisterClient(client *Client) bool {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if cur, ok := s.clients[client.ID]; ok && cur == client {
		delete(s.clients, client.ID)
		log.Printf("❌ 客户端 %s 已断开", client.ID)
		return true
	}
	return false
}
