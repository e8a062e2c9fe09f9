package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType 消息类型，放在每条消息的 type 字段里
type MessageType string

// 客户端 → 服务端 消息类型
const (
	TypeJoinRoomHandshake MessageType = "TYPE_JOIN_ROOM_HANDSHAKE" // 加入房间握手
	TypeDrawData          MessageType = "TYPE_DRAW_DATA"           // 画笔数据
	TypeDrawAction        MessageType = "TYPE_DRAW_ACTION"         // 画板操作（撤销等）
	TypeSetWordToGuess    MessageType = "TYPE_SET_WORD_TO_GUESS"   // 画画玩家选词（服务端也用它公布答案）
	TypeChatMessage       MessageType = "TYPE_CHAT_MESSAGE"        // 聊天消息（同时是猜词通道）
	TypePing              MessageType = "TYPE_PING"                // 心跳
	TypeDisconnectRequest MessageType = "TYPE_DISCONNECT_REQUEST"  // 主动断开
)

// 服务端 → 客户端 消息类型
const (
	TypeAnnouncement     MessageType = "TYPE_ANNOUNCEMENT"        // 公告
	TypeGamePhaseUpdate  MessageType = "TYPE_GAME_PHASE_UPDATE"   // 游戏阶段/倒计时更新
	TypeGameState        MessageType = "TYPE_GAME_STATE"          // 当前画画玩家与词（或下划线掩码）
	TypeWordsToPick      MessageType = "TYPE_WORDS_TO_PICK"       // 候选词列表
	TypePlayersList      MessageType = "TYPE_PLAYERS_LIST"        // 玩家列表（分数、排名）
	TypeCurRoundDrawData MessageType = "TYPE_CUR_ROUND_DRAW_DATA" // 本回合画笔数据回放
	TypeGameError        MessageType = "TYPE_GAME_ERROR"          // 游戏错误
)

// ErrUnknownType 未知的消息类型
var ErrUnknownType = errors.New("protocol: unknown message type")

// envelope 只用来探测 type 字段
type envelope struct {
	Type MessageType `json:"type"`
}

// Decode 解析客户端消息，根据 type 字段返回具体类型的指针
func Decode(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: invalid envelope: %w", err)
	}

	var msg any
	switch env.Type {
	case TypeJoinRoomHandshake:
		msg = &JoinRoomHandshake{}
	case TypeDrawData:
		msg = &DrawData{}
	case TypeDrawAction:
		msg = &DrawAction{}
	case TypeSetWordToGuess:
		msg = &SetWordToGuess{}
	case TypeChatMessage:
		msg = &ChatMessage{}
	case TypePing:
		msg = &Ping{}
	case TypeDisconnectRequest:
		msg = &DisconnectRequest{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("protocol: decode %s: %w", env.Type, err)
	}
	return msg, nil
}

// Encode 将消息编码为 JSON
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// MustEncode 编码消息，失败时 panic（消息结构都是本包定义的，失败属于编程错误）
func MustEncode(msg any) []byte {
	data, err := Encode(msg)
	if err != nil {
		panic(err)
	}
	return data
}
