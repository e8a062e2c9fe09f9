package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realityexpander/guess-a-sketch/internal/apperrors"
	"github.com/realityexpander/guess-a-sketch/internal/protocol"
	"github.com/realityexpander/guess-a-sketch/internal/testutil"
	"github.com/realityexpander/guess-a-sketch/internal/words"
)

func TestRoom_PhaseProgressionOnJoin(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 3))
	room, _ := reg.GetRoom("lobby")

	assert.Equal(t, PhaseInitial, room.Phase())

	joinPlayers(t, reg, "lobby", 1)
	assert.Equal(t, PhaseWaitingForPlayers, room.Phase())

	conn := testutil.NewRecordingConn()
	_, err := reg.AddPlayerToRoom("lobby", "c-second", "second", conn)
	require.NoError(t, err)
	assert.Equal(t, PhaseWaitingForStart, room.Phase())

	// Filling the room while waiting to start kicks off the first round
	_, err = reg.AddPlayerToRoom("lobby", "c-third", "third", testutil.NewRecordingConn())
	require.NoError(t, err)
	assert.Equal(t, PhaseNewRound, room.Phase())
}

func TestRoom_FullRejectsNewPlayer(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 2))
	joinPlayers(t, reg, "lobby", 2)

	_, err := reg.AddPlayerToRoom("lobby", "c-extra", "extra", testutil.NewRecordingConn())
	assert.ErrorIs(t, err, apperrors.ErrRoomFull)

	room, _ := reg.GetRoom("lobby")
	assert.Equal(t, 2, room.PlayerCount())
}

func TestRoom_ExactlyOneDrawingPlayer(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 3))
	players, _ := joinPlayers(t, reg, "lobby", 3)

	room, _ := reg.GetRoom("lobby")
	require.Equal(t, PhaseNewRound, room.Phase())

	drawing := 0
	for _, p := range players {
		if p.IsDrawing() {
			drawing++
		}
	}
	assert.Equal(t, 1, drawing)
	require.NotNil(t, room.DrawingPlayer())
	assert.True(t, room.DrawingPlayer().IsDrawing())
}

func TestRoom_DrawingPlayerRotationWraps(t *testing.T) {
	t.Parallel()
	src, err := words.New([]string{"apple", "banana", "cherry"})
	require.NoError(t, err)
	room := newRoom("lobby", 4, testGameConfig(), src, nil, nil)

	for i := 0; i < 3; i++ {
		room.players = append(room.players, NewPlayer(newClientID(i), newPlayerName(i), nil))
	}

	var order []string
	room.mu.Lock()
	for i := 0; i < 5; i++ {
		room.proceedToNextDrawingPlayerLocked()
		order = append(order, room.drawingPlayer.Name)

		drawing := 0
		for _, p := range room.players {
			if p.IsDrawing() {
				drawing++
			}
		}
		assert.Equal(t, 1, drawing)
	}
	room.mu.Unlock()

	want := []string{
		newPlayerName(0), newPlayerName(1), newPlayerName(2),
		newPlayerName(0), newPlayerName(1),
	}
	assert.Equal(t, want, order)
}

func TestRoom_WordsToPickSentToDrawer(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 3))
	players, conns := joinPlayers(t, reg, "lobby", 3)

	room, _ := reg.GetRoom("lobby")
	require.Equal(t, PhaseNewRound, room.Phase())
	drawer := room.DrawingPlayer()
	require.NotNil(t, drawer)

	for i, p := range players {
		picks := conns[i].MessagesOfType(protocol.TypeWordsToPick)
		if p.ClientID == drawer.ClientID {
			require.Len(t, picks, 1)
			assert.Len(t, picks[0].(*protocol.WordsToPick).Words, 3)
		} else {
			assert.Empty(t, picks, "only the drawer should receive word candidates")
		}
	}
}

func TestRoom_ChooseWordStartsRound(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 3))
	players, conns := joinPlayers(t, reg, "lobby", 3)

	room, _ := reg.GetRoom("lobby")
	drawer := room.DrawingPlayer()
	require.NotNil(t, drawer)

	// A non-drawer cannot choose the word
	for _, p := range players {
		if p.ClientID != drawer.ClientID {
			room.HandleChooseWord(p.ClientID, "banana")
			break
		}
	}
	assert.Equal(t, PhaseNewRound, room.Phase())

	room.HandleChooseWord(drawer.ClientID, "apple")
	assert.Equal(t, PhaseRoundInProgress, room.Phase())

	// Guessers see the masked word, the drawer sees the real one
	for i, p := range players {
		states := conns[i].MessagesOfType(protocol.TypeGameState)
		require.NotEmpty(t, states)
		last := states[len(states)-1].(*protocol.GameState)
		assert.Equal(t, drawer.Name, last.DrawingPlayerName)
		if p.ClientID == drawer.ClientID {
			assert.Equal(t, "apple", last.WordToGuess)
		} else {
			assert.Equal(t, "_ _ _ _ _", last.WordToGuess)
		}
	}
}

func TestRoom_CorrectGuessScores(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 3))
	players, conns := joinPlayers(t, reg, "lobby", 3)

	room, _ := reg.GetRoom("lobby")
	drawer := room.DrawingPlayer()
	require.NotNil(t, drawer)
	room.HandleChooseWord(drawer.ClientID, "apple")

	var guesser *Player
	for _, p := range players {
		if p.ClientID != drawer.ClientID {
			guesser = p
			break
		}
	}

	// Guess matches ignoring case and surrounding whitespace
	room.HandleChatMessage(&protocol.ChatMessage{
		Type:           protocol.TypeChatMessage,
		FromClientID:   guesser.ClientID,
		FromPlayerName: guesser.Name,
		RoomName:       "lobby",
		Message:        "  APPLE ",
	})

	cfg := testGameConfig()
	assert.GreaterOrEqual(t, guesser.Score(), cfg.GuessCorrectBase)
	assert.LessOrEqual(t, guesser.Score(), cfg.GuessCorrectBase+cfg.GuessMultiplier)
	assert.Equal(t, cfg.DrawingBonus/3, drawer.Score())

	// Everybody got the "guessed it" announcement
	for i := range players {
		found := false
		for _, msg := range conns[i].MessagesOfType(protocol.TypeAnnouncement) {
			if msg.(*protocol.Announcement).AnnouncementType == protocol.AnnouncementPlayerGuessedCorrectly {
				found = true
			}
		}
		assert.True(t, found)
	}

	// The correct word must not be relayed as chat
	for i := range players {
		for _, msg := range conns[i].MessagesOfType(protocol.TypeChatMessage) {
			assert.NotEqual(t, "  APPLE ", msg.(*protocol.ChatMessage).Message)
		}
	}
}

func TestRoom_GuessInsideSentenceScores(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 3))
	players, _ := joinPlayers(t, reg, "lobby", 3)

	room, _ := reg.GetRoom("lobby")
	drawer := room.DrawingPlayer()
	require.NotNil(t, drawer)
	room.HandleChooseWord(drawer.ClientID, "apple")

	var guesser, other *Player
	for _, p := range players {
		if p.ClientID == drawer.ClientID {
			continue
		}
		if guesser == nil {
			guesser = p
		} else {
			other = p
		}
	}

	// A partial word is not a match
	room.HandleChatMessage(&protocol.ChatMessage{
		Type:           protocol.TypeChatMessage,
		FromClientID:   guesser.ClientID,
		FromPlayerName: guesser.Name,
		RoomName:       "lobby",
		Message:        "app",
	})
	assert.Zero(t, guesser.Score())

	// The answer buried in a question still counts
	room.HandleChatMessage(&protocol.ChatMessage{
		Type:           protocol.TypeChatMessage,
		FromClientID:   guesser.ClientID,
		FromPlayerName: guesser.Name,
		RoomName:       "lobby",
		Message:        "is it Apple?",
	})
	assert.GreaterOrEqual(t, guesser.Score(), testGameConfig().GuessCorrectBase)

	room.HandleChatMessage(&protocol.ChatMessage{
		Type:           protocol.TypeChatMessage,
		FromClientID:   other.ClientID,
		FromPlayerName: other.Name,
		RoomName:       "lobby",
		Message:        "maybe an APPLE then",
	})
	assert.GreaterOrEqual(t, other.Score(), testGameConfig().GuessCorrectBase)
	assert.Equal(t, PhaseRoundEnded, room.Phase())
}

func TestRoom_GuessScoreDecaysWithTime(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 3))
	players, _ := joinPlayers(t, reg, "lobby", 3)

	room, _ := reg.GetRoom("lobby")
	drawer := room.DrawingPlayer()
	require.NotNil(t, drawer)
	room.HandleChooseWord(drawer.ClientID, "apple")

	// Pretend half the round already elapsed
	cfg := testGameConfig()
	room.mu.Lock()
	room.phaseStartedAt = time.Now().Add(-cfg.RoundInProgressDelayDuration() / 2)
	room.mu.Unlock()

	var guesser *Player
	for _, p := range players {
		if p.ClientID != drawer.ClientID {
			guesser = p
			break
		}
	}
	room.HandleChatMessage(&protocol.ChatMessage{
		Type:           protocol.TypeChatMessage,
		FromClientID:   guesser.ClientID,
		FromPlayerName: guesser.Name,
		RoomName:       "lobby",
		Message:        "apple",
	})

	halfBonus := cfg.GuessMultiplier / 2
	assert.GreaterOrEqual(t, guesser.Score(), cfg.GuessCorrectBase+halfBonus-5)
	assert.LessOrEqual(t, guesser.Score(), cfg.GuessCorrectBase+halfBonus)
}

func TestRoom_EverybodyGuessedEndsRound(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 3))
	players, conns := joinPlayers(t, reg, "lobby", 3)

	room, _ := reg.GetRoom("lobby")
	drawer := room.DrawingPlayer()
	require.NotNil(t, drawer)
	room.HandleChooseWord(drawer.ClientID, "apple")

	for _, p := range players {
		if p.ClientID == drawer.ClientID {
			continue
		}
		room.HandleChatMessage(&protocol.ChatMessage{
			Type:           protocol.TypeChatMessage,
			FromClientID:   p.ClientID,
			FromPlayerName: p.Name,
			RoomName:       "lobby",
			Message:        "apple",
		})
	}

	assert.Equal(t, PhaseRoundEnded, room.Phase())

	everybody := 0
	revealed := false
	for _, msg := range conns[0].MessagesOfType(protocol.TypeAnnouncement) {
		if msg.(*protocol.Announcement).AnnouncementType == protocol.AnnouncementEverybodyGuessedCorrectly {
			everybody++
		}
	}
	for _, msg := range conns[0].MessagesOfType(protocol.TypeSetWordToGuess) {
		if msg.(*protocol.SetWordToGuess).WordToGuess == "apple" {
			revealed = true
		}
	}
	assert.Equal(t, 1, everybody)
	assert.True(t, revealed, "round end should reveal the word to everyone")

	// No penalty when somebody guessed
	assert.GreaterOrEqual(t, drawer.Score(), 0)
}

func TestRoom_RepeatGuessDoesNotScoreTwice(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 4))
	players, _ := joinPlayers(t, reg, "lobby", 4)

	room, _ := reg.GetRoom("lobby")
	drawer := room.DrawingPlayer()
	require.NotNil(t, drawer)
	room.HandleChooseWord(drawer.ClientID, "apple")

	var guesser *Player
	for _, p := range players {
		if p.ClientID != drawer.ClientID {
			guesser = p
			break
		}
	}
	msg := &protocol.ChatMessage{
		Type:           protocol.TypeChatMessage,
		FromClientID:   guesser.ClientID,
		FromPlayerName: guesser.Name,
		RoomName:       "lobby",
		Message:        "apple",
	}
	room.HandleChatMessage(msg)
	scoreAfterFirst := guesser.Score()
	room.HandleChatMessage(msg)
	assert.Equal(t, scoreAfterFirst, guesser.Score())

	// The drawer typing the word must not score either
	room.HandleChatMessage(&protocol.ChatMessage{
		Type:           protocol.TypeChatMessage,
		FromClientID:   drawer.ClientID,
		FromPlayerName: drawer.Name,
		RoomName:       "lobby",
		Message:        "apple",
	})
	assert.Equal(t, PhaseRoundInProgress, room.Phase())
}

func TestRoom_DrawDataRelayAndReplay(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 3))
	players, conns := joinPlayers(t, reg, "lobby", 3)

	room, _ := reg.GetRoom("lobby")
	drawer := room.DrawingPlayer()
	require.NotNil(t, drawer)

	// Strokes before the round starts are buffered but not relayed
	stroke := &protocol.DrawData{
		Type:        protocol.TypeDrawData,
		RoomName:    "lobby",
		Color:       0xFF0000,
		Thickness:   4,
		FromX:       1, FromY: 2, ToX: 3, ToY: 4,
		MotionEvent: protocol.MotionEventDown,
	}
	room.HandleDrawData(stroke)
	for i := range players {
		assert.Zero(t, conns[i].CountOfType(protocol.TypeDrawData))
	}

	room.HandleChooseWord(drawer.ClientID, "apple")
	room.HandleDrawData(stroke)

	for i, p := range players {
		n := conns[i].CountOfType(protocol.TypeDrawData)
		if p.ClientID == drawer.ClientID {
			assert.Zero(t, n, "the drawer should not get their own strokes back")
		} else {
			assert.Equal(t, 1, n)
		}
	}

	// A player rejoining mid-round gets the full stroke replay
	room.SchedulePlayerRemoval(players[2].ClientID, false)
	rejoined := testutil.NewRecordingConn()
	_, err := room.AddPlayer(players[2].ClientID, players[2].Name, rejoined)
	require.NoError(t, err)

	replays := rejoined.MessagesOfType(protocol.TypeCurRoundDrawData)
	require.Len(t, replays, 1)
	assert.Len(t, replays[0].(*protocol.CurRoundDrawData).Data, 2)
}

func TestRoom_UndoActionRelayed(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 3))
	players, conns := joinPlayers(t, reg, "lobby", 3)

	room, _ := reg.GetRoom("lobby")
	drawer := room.DrawingPlayer()
	require.NotNil(t, drawer)
	room.HandleChooseWord(drawer.ClientID, "apple")

	room.HandleDrawAction(drawer.ClientID, &protocol.DrawAction{
		Type:   protocol.TypeDrawAction,
		Action: protocol.DrawActionUndo,
	})

	for i, p := range players {
		n := conns[i].CountOfType(protocol.TypeDrawAction)
		if p.ClientID == drawer.ClientID {
			assert.Zero(t, n)
		} else {
			assert.Equal(t, 1, n)
		}
	}
}

func TestRoom_GraceRejoinRestoresDrawer(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 3))
	joinPlayers(t, reg, "lobby", 3)

	room, _ := reg.GetRoom("lobby")
	drawer := room.DrawingPlayer()
	require.NotNil(t, drawer)
	room.HandleChooseWord(drawer.ClientID, "apple")

	room.SchedulePlayerRemoval(drawer.ClientID, false)
	assert.Equal(t, 2, room.PlayerCount())
	assert.True(t, room.ContainsClientID(drawer.ClientID), "exiting player is still known during grace")

	p, err := room.AddPlayer(drawer.ClientID, drawer.Name, testutil.NewRecordingConn())
	require.NoError(t, err)
	assert.Same(t, drawer, p, "rejoin must reuse the existing player, not build a new one")
	assert.True(t, p.IsDrawing(), "drawer role is restored on rejoin")
	assert.Equal(t, 3, room.PlayerCount())
}

func TestRoom_GraceSeatBlocksNewJoin(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 2))
	players, _ := joinPlayers(t, reg, "lobby", 2)

	room, _ := reg.GetRoom("lobby")
	room.SchedulePlayerRemoval(players[0].ClientID, false)
	assert.Equal(t, 1, room.PlayerCount())
	assert.Equal(t, 2, room.SeatedCount(), "grace-window player keeps their seat")

	// The reserved seat cannot be taken by someone new
	_, err := room.AddPlayer("c-newcomer", "newcomer", testutil.NewRecordingConn())
	assert.ErrorIs(t, err, apperrors.ErrRoomFull)

	// The seat owner can still come back to it
	p, err := room.AddPlayer(players[0].ClientID, players[0].Name, testutil.NewRecordingConn())
	require.NoError(t, err)
	assert.Same(t, players[0], p)
	assert.Equal(t, 2, room.PlayerCount())
	assert.Equal(t, 2, room.SeatedCount())
}

func TestRoom_RemovalPhaseFallbacks(t *testing.T) {
	t.Parallel()
	reg := newTestRegistry(t, testGameConfig())
	require.NoError(t, reg.CreateRoom("lobby", 3))
	players, _ := joinPlayers(t, reg, "lobby", 3)

	room, _ := reg.GetRoom("lobby")
	require.Equal(t, PhaseNewRound, room.Phase())

	// Down to one player the game cannot continue
	room.SchedulePlayerRemoval(players[0].ClientID, true)
	room.SchedulePlayerRemoval(players[1].ClientID, true)
	assert.Equal(t, PhaseWaitingForPlayers, room.Phase())

	// Last player gone kills the room entirely
	room.SchedulePlayerRemoval(players[2].ClientID, true)
	_, ok := reg.GetRoom("lobby")
	assert.False(t, ok)
	_, ok = reg.GetPlayer(players[2].ClientID)
	assert.False(t, ok)
}

func TestRoom_LatePongRejoinsPlayer(t *testing.T) {
	t.Parallel()
	cfg := testGameConfig()
	cfg.PingInterval = 1
	reg := newTestRegistry(t, cfg)
	require.NoError(t, reg.CreateRoom("lobby", 2))
	players, conns := joinPlayers(t, reg, "lobby", 2)

	room, _ := reg.GetRoom("lobby")

	// Keep player 0 alive, let player 1 time out
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				reg.ReceivePong(players[0].ClientID, conns[0])
			}
		}
	}()

	require.Eventually(t, func() bool {
		return room.PlayerCount() == 1
	}, 10*time.Second, 100*time.Millisecond, "unresponsive player should be moved out of the active list")
	assert.False(t, players[1].IsOnline())

	// A late pong counts as a reconnect
	reg.ReceivePong(players[1].ClientID, conns[1])
	assert.Equal(t, 2, room.PlayerCount())
	assert.True(t, players[1].IsOnline())
}

func TestRoom_FullCycleWithTimers(t *testing.T) {
	t.Parallel()
	cfg := testGameConfig()
	cfg.WaitingForStartDelay = 1
	cfg.NewRoundDelay = 1
	cfg.RoundInProgressDelay = 1
	cfg.RoundEndedDelay = 1
	reg := newTestRegistry(t, cfg)
	require.NoError(t, reg.CreateRoom("lobby", 2))
	players, conns := joinPlayers(t, reg, "lobby", 2)

	room, _ := reg.GetRoom("lobby")
	require.Equal(t, PhaseWaitingForStart, room.Phase())

	require.Eventually(t, func() bool {
		return room.Phase() == PhaseRoundInProgress
	}, 10*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return room.Phase() == PhaseRoundEnded
	}, 10*time.Second, 20*time.Millisecond)

	// Nobody guessed, so some drawer took the penalty
	require.Eventually(t, func() bool {
		return players[0].Score() < 0 || players[1].Score() < 0
	}, 10*time.Second, 20*time.Millisecond)

	// The cycle loops back into new rounds on its own
	require.Eventually(t, func() bool {
		return conns[0].CountOfType(protocol.TypeWordsToPick) > 0 ||
			conns[1].CountOfType(protocol.TypeWordsToPick) > 0
	}, 10*time.Second, 20*time.Millisecond)
}
