package apperrors

import (
	"github.com/realityexpander/guess-a-sketch/internal/protocol"
)

// GameError 游戏域错误，带对应的下发错误码
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrRoomNotFound   = &GameError{Code: protocol.ErrCodeRoomNotFound, Message: "room not found"}
	ErrRoomFull       = &GameError{Code: protocol.ErrCodeRoomFull, Message: "room is full"}
	ErrRoomExists     = &GameError{Code: protocol.ErrCodeInvalidMessage, Message: "room already exists"}
	ErrTooFewPlayers  = &GameError{Code: protocol.ErrCodeInvalidMessage, Message: "too few players"}
	ErrTooManyPlayers = &GameError{Code: protocol.ErrCodeInvalidMessage, Message: "too many players"}
)
