package server

import (
	"errors"
	"log"

	"github.com/realityexpander/guess-a-sketch/internal/apperrors"
	"github.com/realityexpander/guess-a-sketch/internal/protocol"
)

// route 按消息类型分发到游戏逻辑。
// 除握手外的消息都要求玩家已经在房间里，否则静默丢弃
func (s *Server) route(c *Client, msg any) {
	switch m := msg.(type) {
	case *protocol.JoinRoomHandshake:
		s.handleJoinRoom(c, m)

	case *protocol.DrawData:
		if room, ok := s.registry.RoomOfPlayer(c.ID); ok {
			room.HandleDrawData(m)
		}

	case *protocol.DrawAction:
		if room, ok := s.registry.RoomOfPlayer(c.ID); ok {
			room.HandleDrawAction(c.ID, m)
		}

	case *protocol.SetWordToGuess:
		if room, ok := s.registry.RoomOfPlayer(c.ID); ok {
			room.HandleChooseWord(c.ID, m.WordToGuess)
		}

	case *protocol.ChatMessage:
		if room, ok := s.registry.RoomOfPlayer(c.ID); ok {
			room.HandleChatMessage(m)
		}

	case *protocol.Ping:
		s.registry.ReceivePong(c.ID, c)

	case *protocol.DisconnectRequest:
		s.registry.DisconnectPlayer(c.ID, true)

	default:
		log.Printf("未处理的消息类型: %T", msg)
	}
}

// handleJoinRoom 处理加入房间握手。
// 握手里带 clientId 的以握手为准，和连接的 clientId 保持一致
func (s *Server) handleJoinRoom(c *Client, m *protocol.JoinRoomHandshake) {
	clientID := m.ClientID
	if clientID == "" {
		clientID = c.ID
	}
	if clientID != c.ID {
		log.Printf("⚠️ 握手 clientId (%s) 和连接 clientId (%s) 不一致，以连接为准", m.ClientID, c.ID)
		clientID = c.ID
	}

	if _, err := s.registry.AddPlayerToRoom(m.RoomName, clientID, m.PlayerName, c); err != nil {
		var gameErr *apperrors.GameError
		if errors.As(err, &gameErr) {
			c.SendError(gameErr.Code)
		} else {
			c.SendError(protocol.ErrCodeInvalidMessage)
		}
		log.Printf("⚠️ 玩家 %s 加入房间 %s 失败: %v", m.PlayerName, m.RoomName, err)
	}
}
