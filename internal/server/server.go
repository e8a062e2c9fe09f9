package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/realityexpander/guess-a-sketch/internal/config"
	"github.com/realityexpander/guess-a-sketch/internal/game"
	"github.com/realityexpander/guess-a-sketch/internal/storage"
	"github.com/realityexpander/guess-a-sketch/internal/words"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源，生产环境需要限制
	},
	EnableCompression: false,
}

// Server 游戏服务器：HTTP 房间接口 + WebSocket 画板通道
type Server struct {
	config      *config.Config
	redis       *redis.Client
	leaderboard *storage.Leaderboard
	registry    *game.Registry

	clients   map[string]*Client
	clientsMu sync.RWMutex

	httpServer *http.Server
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) (*Server, error) {
	// 词库
	src, err := words.Load(cfg.Server.WordFile)
	if err != nil {
		return nil, fmt.Errorf("加载词库失败: %w", err)
	}

	// 初始化 Redis 客户端
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 测试 Redis 连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}

	s := &Server{
		config:      cfg,
		redis:       rdb,
		leaderboard: storage.NewLeaderboard(rdb),
		clients:     make(map[string]*Client),
	}
	s.registry = game.NewRegistry(&cfg.Game, src, s.leaderboard)

	return s, nil
}

// Start 启动服务器
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/draw", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.registerAPIRoutes(mux)

	// 启动监控 goroutine
	go s.monitorStats()

	log.Printf("🚀 服务器启动在 ws://%s/ws/draw (CPU核心数: %d)", addr, runtime.NumCPU())
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		IdleTimeout:       60 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// monitorStats 定期监控服务器状态
func (s *Server) monitorStats() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		s.clientsMu.RLock()
		online := len(s.clients)
		s.clientsMu.RUnlock()

		log.Printf("📊 [监控] 在线: %d | 房间: %d | Goroutines: %d | 内存: %.2f MB",
			online,
			len(s.registry.RoomInfos("")),
			runtime.NumGoroutine(),
			float64(m.Alloc)/1024/1024)
	}
}

// Shutdown 优雅关闭：销毁所有房间、断开客户端、关闭 HTTP 服务和 Redis
func (s *Server) Shutdown() {
	log.Println("正在关闭服务器...")

	s.registry.Shutdown()

	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clientsMu.Unlock()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(ctx)
	}

	_ = s.redis.Close()
	log.Println("服务器已关闭")
}
