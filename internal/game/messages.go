package game

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/realityexpander/guess-a-sketch/internal/protocol"
)

// ScoreRecorder 接收每回合结束时的累计分数，用于排行榜之类的统计。
// 实现必须能安全并发调用
type ScoreRecorder interface {
	RecordScores(ctx context.Context, scores map[string]int) error
}

// HandleChatMessage 处理聊天消息。猜对时记分并广播公告，否则原样转发给所有人
func (r *Room) HandleChatMessage(msg *protocol.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.killed {
		return
	}

	if r.isCorrectGuessLocked(msg) {
		r.addWinningPlayerLocked(msg.FromClientID, msg.FromPlayerName)
		return
	}
	r.broadcastLocked(protocol.MustEncode(msg))
}

// isCorrectGuessLocked 判断一条聊天是否是有效的猜中：
// 回合进行中、消息去空格后忽略大小写包含答案（整句提问也算猜中）、
// 发送者不是画画玩家、且本回合还没猜中过
func (r *Room) isCorrectGuessLocked(msg *protocol.ChatMessage) bool {
	if r.phase != PhaseRoundInProgress || r.wordToGuess == "" {
		return false
	}
	guess := strings.ToLower(strings.TrimSpace(msg.Message))
	if !strings.Contains(guess, strings.ToLower(r.wordToGuess)) {
		return false
	}
	if r.drawingPlayer != nil && r.drawingPlayer.ClientID == msg.FromClientID {
		return false
	}
	if _, guessed := r.winningPlayers[msg.FromClientID]; guessed {
		return false
	}
	return true
}

// addWinningPlayerLocked 给猜中的玩家记分：基础分加上按剩余时间衰减的加成，
// 画画玩家按房间人数分得固定奖励。除画画玩家外所有人都猜中时直接结束回合
func (r *Room) addWinningPlayerLocked(clientID, playerName string) {
	elapsed := time.Since(r.phaseStartedAt)
	total := r.cfg.RoundInProgressDelayDuration()
	timeLeft := 1 - elapsed.Seconds()/total.Seconds()
	if timeLeft < 0 {
		timeLeft = 0
	}
	score := r.cfg.GuessCorrectBase + int(float64(r.cfg.GuessMultiplier)*timeLeft)

	if idx := r.indexOfLocked(clientID); idx != -1 {
		r.players[idx].AddScore(score)
	}
	if r.drawingPlayer != nil && len(r.players) > 0 {
		r.drawingPlayer.AddScore(r.cfg.DrawingBonus / len(r.players))
	}
	r.winningPlayers[clientID] = struct{}{}
	log.Printf("🎯 玩家 %s 在房间 %s 猜中 %q，得 %d 分", playerName, r.name, r.wordToGuess, score)

	announcement := protocol.NewAnnouncement(
		fmt.Sprintf("%s guessed it correctly!", playerName),
		time.Now().UnixMilli(),
		protocol.AnnouncementPlayerGuessedCorrectly,
	)
	r.broadcastLocked(protocol.MustEncode(announcement))
	r.broadcastPlayersListLocked()

	if len(r.winningPlayers) == len(r.players)-1 {
		everybody := protocol.NewAnnouncement(
			"Everybody guessed it! Round over!",
			time.Now().UnixMilli(),
			protocol.AnnouncementEverybodyGuessedCorrectly,
		)
		r.broadcastLocked(protocol.MustEncode(everybody))
		r.transitionToLocked(PhaseRoundEnded)
	}
}

// HandleChooseWord 画画玩家在选词阶段敲定答案，立刻进入回合
func (r *Room) HandleChooseWord(clientID, word string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.killed || r.phase != PhaseNewRound {
		return
	}
	if r.drawingPlayer == nil || r.drawingPlayer.ClientID != clientID {
		return
	}
	r.wordToGuess = word
	r.transitionToLocked(PhaseRoundInProgress)
}

// HandleDrawData 转发画笔数据给除发送者外的所有人，并记入本回合回放缓冲。
// 只有回合进行中和回合结束阶段才转发，缓冲则无条件追加
func (r *Room) HandleDrawData(msg *protocol.DrawData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.killed {
		return
	}

	senderID := ""
	if r.drawingPlayer != nil {
		senderID = r.drawingPlayer.ClientID
	}
	data := protocol.MustEncode(msg)
	if r.phase == PhaseRoundInProgress || r.phase == PhaseRoundEnded {
		r.broadcastExceptLocked(data, senderID)
	}
	r.curRoundDrawData = append(r.curRoundDrawData, data)
	r.lastDrawData = msg
}

// HandleDrawAction 转发撤销之类的画板操作，同样记入回放缓冲
func (r *Room) HandleDrawAction(senderClientID string, msg *protocol.DrawAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.killed {
		return
	}

	data := protocol.MustEncode(msg)
	r.broadcastExceptLocked(data, senderClientID)
	r.curRoundDrawData = append(r.curRoundDrawData, data)
}
