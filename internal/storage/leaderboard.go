package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key
	playerStatsKey = "player:stats:"
	leaderboardKey = "leaderboard:score"
)

// PlayerStats 玩家统计数据
type PlayerStats struct {
	PlayerName string `json:"player_name"`

	TotalRounds int `json:"total_rounds"` // 参与的回合数
	BestScore   int `json:"best_score"`   // 单局最高累计分

	LastPlayedAt int64 `json:"last_played_at"` // 最后游戏时间
	CreatedAt    int64 `json:"created_at"`     // 首次游戏时间
}

// Entry 排行榜条目
type Entry struct {
	Rank       int    `json:"rank"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
}

// Leaderboard 基于 Redis 有序集合的排行榜，
// 同时为每个玩家维护一份 JSON 统计
type Leaderboard struct {
	redis *redis.Client
}

// NewLeaderboard 创建排行榜
func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{redis: client}
}

// RecordScores 在每个回合结束时记录玩家的累计分数。
// 排行榜只保留每个玩家的历史最高分
func (lb *Leaderboard) RecordScores(ctx context.Context, scores map[string]int) error {
	now := time.Now().Unix()
	for name, score := range scores {
		best, err := lb.redis.ZScore(ctx, leaderboardKey, name).Result()
		switch {
		case errors.Is(err, redis.Nil):
			best = float64(score) - 1 // 没有记录，直接写入
		case err != nil:
			return err
		}
		if float64(score) > best {
			if err := lb.redis.ZAdd(ctx, leaderboardKey, redis.Z{
				Score:  float64(score),
				Member: name,
			}).Err(); err != nil {
				return err
			}
		}

		if err := lb.updateStats(ctx, name, score, now); err != nil {
			return err
		}
	}
	return nil
}

func (lb *Leaderboard) updateStats(ctx context.Context, name string, score int, now int64) error {
	stats, err := lb.PlayerStats(ctx, name)
	if err != nil {
		return err
	}
	if stats == nil {
		stats = &PlayerStats{PlayerName: name, CreatedAt: now}
	}

	stats.TotalRounds++
	if score > stats.BestScore {
		stats.BestScore = score
	}
	stats.LastPlayedAt = now

	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return lb.redis.Set(ctx, playerStatsKey+name, data, 0).Err()
}

// PlayerStats 获取单个玩家的统计，没有记录时返回 nil
func (lb *Leaderboard) PlayerStats(ctx context.Context, name string) (*PlayerStats, error) {
	data, err := lb.redis.Get(ctx, playerStatsKey+name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var stats PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Top 返回分数最高的前 limit 名玩家
func (lb *Leaderboard) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	results, err := lb.redis.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		name, _ := z.Member.(string)
		entries = append(entries, Entry{
			Rank:       i + 1,
			PlayerName: name,
			Score:      int(z.Score),
		})
	}
	return entries, nil
}
