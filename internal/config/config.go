package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认值
const (
	defaultHost     = "0.0.0.0"
	defaultPort     = 8005
	defaultWordFile = "resources/programmers_wordlist.txt"

	defaultRedisAddr = "localhost:6379"

	defaultWaitingForStartDelay = 10 // 等待开始 → 新回合（秒）
	defaultNewRoundDelay        = 20 // 新回合 → 回合进行中（秒）
	defaultRoundInProgressDelay = 60 // 回合进行中 → 回合结束（秒）
	defaultRoundEndedDelay      = 10 // 回合结束 → 新回合（秒）

	defaultPingInterval     = 3  // 心跳间隔（秒）
	defaultPlayerExitDelay  = 60 // 玩家退出宽限期（秒）
	defaultMinPlayers       = 2
	defaultMaxPlayersCap    = 8
	defaultGuessCorrectBase = 50
	defaultGuessMultiplier  = 50
	defaultDrawingBonus     = 50
	defaultNoGuessPenalty   = 50
)

// Config 服务端配置
type Config struct {
	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
	Game   GameConfig   `yaml:"game"`
}

// ServerConfig HTTP/WebSocket 服务器配置
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	WordFile string `yaml:"word_file"` // 词库文件路径
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GameConfig 游戏配置
type GameConfig struct {
	WaitingForStartDelay int `yaml:"waiting_for_start_delay"` // 等待开始倒计时（秒）
	NewRoundDelay        int `yaml:"new_round_delay"`         // 选词倒计时（秒）
	RoundInProgressDelay int `yaml:"round_in_progress_delay"` // 猜词倒计时（秒）
	RoundEndedDelay      int `yaml:"round_ended_delay"`       // 回合结束倒计时（秒）

	PingInterval    int `yaml:"ping_interval"`     // 心跳间隔（秒）
	PlayerExitDelay int `yaml:"player_exit_delay"` // 玩家退出宽限期（秒）

	MinPlayers    int `yaml:"min_players"`     // 创建房间的最少人数
	MaxPlayersCap int `yaml:"max_players_cap"` // 创建房间的人数上限

	GuessCorrectBase int `yaml:"guess_correct_base"` // 猜对基础分
	GuessMultiplier  int `yaml:"guess_multiplier"`   // 猜对时间加成系数
	DrawingBonus     int `yaml:"drawing_bonus"`      // 画画玩家奖励分（按房间人数均分）
	NoGuessPenalty   int `yaml:"no_guess_penalty"`   // 无人猜中时画画玩家的罚分
}

// WaitingForStartDelayDuration 返回等待开始倒计时时长
func (c *GameConfig) WaitingForStartDelayDuration() time.Duration {
	return time.Duration(c.WaitingForStartDelay) * time.Second
}

// NewRoundDelayDuration 返回选词倒计时时长
func (c *GameConfig) NewRoundDelayDuration() time.Duration {
	return time.Duration(c.NewRoundDelay) * time.Second
}

// RoundInProgressDelayDuration 返回猜词倒计时时长
func (c *GameConfig) RoundInProgressDelayDuration() time.Duration {
	return time.Duration(c.RoundInProgressDelay) * time.Second
}

// RoundEndedDelayDuration 返回回合结束倒计时时长
func (c *GameConfig) RoundEndedDelayDuration() time.Duration {
	return time.Duration(c.RoundEndedDelay) * time.Second
}

// PingIntervalDuration 返回心跳间隔时长
func (c *GameConfig) PingIntervalDuration() time.Duration {
	return time.Duration(c.PingInterval) * time.Second
}

// PlayerExitDelayDuration 返回玩家退出宽限期时长
func (c *GameConfig) PlayerExitDelayDuration() time.Duration {
	return time.Duration(c.PlayerExitDelay) * time.Second
}

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults 填充未设置的字段
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.WordFile == "" {
		c.Server.WordFile = defaultWordFile
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = defaultRedisAddr
	}
	if c.Game.WaitingForStartDelay == 0 {
		c.Game.WaitingForStartDelay = defaultWaitingForStartDelay
	}
	if c.Game.NewRoundDelay == 0 {
		c.Game.NewRoundDelay = defaultNewRoundDelay
	}
	if c.Game.RoundInProgressDelay == 0 {
		c.Game.RoundInProgressDelay = defaultRoundInProgressDelay
	}
	if c.Game.RoundEndedDelay == 0 {
		c.Game.RoundEndedDelay = defaultRoundEndedDelay
	}
	if c.Game.PingInterval == 0 {
		c.Game.PingInterval = defaultPingInterval
	}
	if c.Game.PlayerExitDelay == 0 {
		c.Game.PlayerExitDelay = defaultPlayerExitDelay
	}
	if c.Game.MinPlayers == 0 {
		c.Game.MinPlayers = defaultMinPlayers
	}
	if c.Game.MaxPlayersCap == 0 {
		c.Game.MaxPlayersCap = defaultMaxPlayersCap
	}
	if c.Game.GuessCorrectBase == 0 {
		c.Game.GuessCorrectBase = defaultGuessCorrectBase
	}
	if c.Game.GuessMultiplier == 0 {
		c.Game.GuessMultiplier = defaultGuessMultiplier
	}
	if c.Game.DrawingBonus == 0 {
		c.Game.DrawingBonus = defaultDrawingBonus
	}
	if c.Game.NoGuessPenalty == 0 {
		c.Game.NoGuessPenalty = defaultNoGuessPenalty
	}
}
