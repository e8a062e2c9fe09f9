package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/realityexpander/guess-a-sketch/internal/game"
)

// BasicApiResponse HTTP 接口的统一应答
type BasicApiResponse struct {
	Successful bool   `json:"successful"`
	Message    string `json:"message,omitempty"`
}

// createRoomRequest 创建房间请求体
type createRoomRequest struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers"`
}

// registerAPIRoutes 注册房间管理相关的 HTTP 接口
func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/createRoom", s.handleCreateRoom)
	mux.HandleFunc("/api/getRooms", s.handleGetRooms)
	mux.HandleFunc("/api/joinRoom", s.handleJoinRoomCheck)
	mux.HandleFunc("/api/leaderboard", s.handleLeaderboard)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("写应答失败: %v", err)
	}
}

// handleCreateRoom 创建房间
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, BasicApiResponse{
			Successful: false,
			Message:    "invalid request body",
		})
		return
	}

	if err := s.registry.CreateRoom(req.Name, req.MaxPlayers); err != nil {
		writeJSON(w, http.StatusOK, BasicApiResponse{
			Successful: false,
			Message:    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, BasicApiResponse{Successful: true})
}

// handleGetRooms 查询房间列表，支持 searchQuery 模糊过滤
func (s *Server) handleGetRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.registry.RoomInfos(r.URL.Query().Get("searchQuery")))
}

// handleJoinRoomCheck 加入房间前置检查，客户端通过后再开 WebSocket
func (s *Server) handleJoinRoomCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	roomName := r.URL.Query().Get("roomName")
	playerName := r.URL.Query().Get("username")
	if roomName == "" || playerName == "" {
		writeJSON(w, http.StatusBadRequest, BasicApiResponse{
			Successful: false,
			Message:    "missing roomName or username",
		})
		return
	}

	switch s.registry.CheckJoin(roomName, playerName) {
	case game.JoinRoomNotFound:
		writeJSON(w, http.StatusOK, BasicApiResponse{
			Successful: false,
			Message:    "room not found",
		})
	case game.JoinRoomFull:
		writeJSON(w, http.StatusOK, BasicApiResponse{
			Successful: false,
			Message:    "room is full",
		})
	default:
		writeJSON(w, http.StatusOK, BasicApiResponse{Successful: true})
	}
}

// handleLeaderboard 查询排行榜前 N 名
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.leaderboard.Top(r.Context(), limit)
	if err != nil {
		log.Printf("查询排行榜失败: %v", err)
		writeJSON(w, http.StatusInternalServerError, BasicApiResponse{
			Successful: false,
			Message:    "leaderboard unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
