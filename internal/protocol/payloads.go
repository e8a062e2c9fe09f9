package protocol

import "encoding/json"

// 画笔事件 motionEvent 取值
const (
	MotionEventDown = 0 // 落笔
	MotionEventUp   = 1 // 抬笔
	MotionEventMove = 2 // 移动
)

// 画板操作 action 取值
const (
	DrawActionUndo  = "ACTION_UNDO"
	DrawActionDraw  = "ACTION_DRAW"
	DrawActionErase = "ACTION_ERASE"
)

// 公告类型
const (
	AnnouncementPlayerGuessedCorrectly    = 0 // 有玩家猜对
	AnnouncementPlayerJoinedRoom          = 1 // 玩家加入
	AnnouncementPlayerExitedRoom          = 2 // 玩家离开
	AnnouncementEverybodyGuessedCorrectly = 3 // 所有人都猜对
)

// --- 客户端 → 服务端 ---

// JoinRoomHandshake 加入房间握手
type JoinRoomHandshake struct {
	Type       MessageType `json:"type"`
	PlayerName string      `json:"playerName"`
	RoomName   string      `json:"roomName"`
	ClientID   string      `json:"clientId"`
}

// DrawData 一段画笔轨迹
type DrawData struct {
	Type        MessageType `json:"type"`
	RoomName    string      `json:"roomName"`
	Color       int         `json:"color"`
	Thickness   float64     `json:"thickness"`
	FromX       float64     `json:"fromX"`
	FromY       float64     `json:"fromY"`
	ToX         float64     `json:"toX"`
	ToY         float64     `json:"toY"`
	MotionEvent int         `json:"motionEvent"`
}

// DrawAction 画板整体操作（撤销、清空等）
type DrawAction struct {
	Type   MessageType `json:"type"`
	Action string      `json:"action"`
}

// SetWordToGuess 画画玩家选定词；回合结束时服务端也用它向所有人公布答案
type SetWordToGuess struct {
	Type        MessageType `json:"type"`
	WordToGuess string      `json:"wordToGuess"`
	RoomName    string      `json:"roomName"`
}

// ChatMessage 聊天消息，同时是猜词通道
type ChatMessage struct {
	Type           MessageType `json:"type"`
	FromClientID   string      `json:"fromClientId"`
	FromPlayerName string      `json:"fromPlayerName"`
	RoomName       string      `json:"roomName"`
	Message        string      `json:"message"`
	Timestamp      int64       `json:"timestamp"`
}

// Ping 心跳。服务端发出不带 playerName，客户端应答时带上
type Ping struct {
	Type       MessageType `json:"type"`
	PlayerName string      `json:"playerName,omitempty"`
}

// DisconnectRequest 客户端请求立即离开房间
type DisconnectRequest struct {
	Type MessageType `json:"type"`
}

// --- 服务端 → 客户端 ---

// Announcement 房间公告
type Announcement struct {
	Type             MessageType `json:"type"`
	Message          string      `json:"message"`
	Timestamp        int64       `json:"timestamp"`
	AnnouncementType int         `json:"announcementType"`
}

// GamePhaseUpdate 阶段变更与倒计时。gamePhase 为 nil 时不序列化，
// 客户端以此区分“进入新阶段”和“纯倒计时更新”
type GamePhaseUpdate struct {
	Type                 MessageType `json:"type"`
	GamePhase            *string     `json:"gamePhase,omitempty"`
	CountdownTimerMillis int64       `json:"countdownTimerMillis"`
	DrawingPlayerName    string      `json:"drawingPlayerName,omitempty"`
}

// GameState 当前画画玩家与要猜的词（对猜词玩家是下划线掩码）
type GameState struct {
	Type                  MessageType `json:"type"`
	DrawingPlayerName     string      `json:"drawingPlayerName"`
	DrawingPlayerClientID string      `json:"drawingPlayerClientId"`
	WordToGuess           string      `json:"wordToGuess"`
}

// WordsToPick 发给画画玩家的候选词
type WordsToPick struct {
	Type  MessageType `json:"type"`
	Words []string    `json:"words"`
}

// PlayerData 单个玩家的公开数据
type PlayerData struct {
	PlayerName string `json:"playerName"`
	IsDrawing  bool   `json:"isDrawing"`
	Score      int    `json:"score"`
	Rank       int    `json:"rank"`
}

// PlayersList 按排名排序的玩家列表
type PlayersList struct {
	Type    MessageType  `json:"type"`
	Players []PlayerData `json:"players"`
}

// CurRoundDrawData 本回合累计的画笔数据，发给中途加入/重连的玩家重建画布
type CurRoundDrawData struct {
	Type MessageType       `json:"type"`
	Data []json.RawMessage `json:"data"`
}

// GameError 游戏错误
type GameError struct {
	Type         MessageType `json:"type"`
	ErrorType    int         `json:"errorType"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
}

// --- 构造函数 ---

// NewAnnouncement 创建公告消息
func NewAnnouncement(message string, timestamp int64, kind int) *Announcement {
	return &Announcement{
		Type:             TypeAnnouncement,
		Message:          message,
		Timestamp:        timestamp,
		AnnouncementType: kind,
	}
}

// NewGamePhaseUpdate 创建阶段变更消息
func NewGamePhaseUpdate(phase string, countdownMillis int64, drawingPlayerName string) *GamePhaseUpdate {
	return &GamePhaseUpdate{
		Type:                 TypeGamePhaseUpdate,
		GamePhase:            &phase,
		CountdownTimerMillis: countdownMillis,
		DrawingPlayerName:    drawingPlayerName,
	}
}

// NewGameError 创建错误消息
func NewGameError(errorType int) *GameError {
	return &GameError{
		Type:         TypeGameError,
		ErrorType:    errorType,
		ErrorMessage: ErrorMessages[errorType],
	}
}
