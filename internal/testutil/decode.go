//go:build !production

package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/realityexpander/guess-a-sketch/internal/protocol"
)

// decodeServerMessage 解析服务端发出的消息（protocol.Decode 只认客户端消息）
func decodeServerMessage(data []byte) (any, error) {
	var env struct {
		Type protocol.MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	var msg any
	switch env.Type {
	case protocol.TypeAnnouncement:
		msg = &protocol.Announcement{}
	case protocol.TypeGamePhaseUpdate:
		msg = &protocol.GamePhaseUpdate{}
	case protocol.TypeGameState:
		msg = &protocol.GameState{}
	case protocol.TypeWordsToPick:
		msg = &protocol.WordsToPick{}
	case protocol.TypePlayersList:
		msg = &protocol.PlayersList{}
	case protocol.TypeCurRoundDrawData:
		msg = &protocol.CurRoundDrawData{}
	case protocol.TypeGameError:
		msg = &protocol.GameError{}
	case protocol.TypePing:
		msg = &protocol.Ping{}
	case protocol.TypeChatMessage:
		msg = &protocol.ChatMessage{}
	case protocol.TypeDrawData:
		msg = &protocol.DrawData{}
	case protocol.TypeDrawAction:
		msg = &protocol.DrawAction{}
	case protocol.TypeSetWordToGuess:
		msg = &protocol.SetWordToGuess{}
	default:
		return nil, fmt.Errorf("testutil: unknown server message type %q", env.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func typeOf(msg any) protocol.MessageType {
	switch m := msg.(type) {
	case *protocol.Announcement:
		return m.Type
	case *protocol.GamePhaseUpdate:
		return m.Type
	case *protocol.GameState:
		return m.Type
	case *protocol.WordsToPick:
		return m.Type
	case *protocol.PlayersList:
		return m.Type
	case *protocol.CurRoundDrawData:
		return m.Type
	case *protocol.GameError:
		return m.Type
	case *protocol.Ping:
		return m.Type
	case *protocol.ChatMessage:
		return m.Type
	case *protocol.DrawData:
		return m.Type
	case *protocol.DrawAction:
		return m.Type
	case *protocol.SetWordToGuess:
		return m.Type
	default:
		return ""
	}
}
