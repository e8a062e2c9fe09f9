package protocol

// 错误码
const (
	ErrCodeRoomNotFound   = 1
	ErrCodeRoomFull       = 2
	ErrCodeInvalidMessage = 3
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeRoomNotFound:   "Room not found",
	ErrCodeRoomFull:       "Room is full",
	ErrCodeInvalidMessage: "Invalid message",
}
