// internal/game/engine_test.go
package game

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanfold/paperoceans/internal/models"
)

// newTestEngine returns a deterministic engine for flow tests.
func newTestEngine() *Engine {
	return NewEngine(rand.NewSource(42))
}

// newPlayingRoom builds a room with n seated players and a started round.
// Player ids are p0..p(n-1); p0 hosts and holds the opening turn.
func newPlayingRoom(t *testing.T, e *Engine, n int) *models.Room {
	t.Helper()
	room := e.CreateRoom("TESTR", "p0", "Player0")
	for i := 1; i < n; i++ {
		id := fmt.Sprintf("p%d", i)
		require.NoError(t, e.JoinRoom(room, id, fmt.Sprintf("Player%d", i)))
		require.NoError(t, e.ToggleReady(room, id))
	}
	require.NoError(t, e.StartRound(room, "p0", false))
	return room
}

func TestCreateRoomDefaults(t *testing.T) {
	e := newTestEngine()
	room := e.CreateRoom("ABCDE", "host", "Hosty")

	assert.Equal(t, models.StatusLobby, room.Status)
	assert.Equal(t, "host", room.HostID)
	require.Len(t, room.Players, 1)
	assert.True(t, room.Players[0].Ready, "host starts ready")
	assert.Empty(t, room.Deck, "deck is built at round start")
}

func TestJoinRoomRules(t *testing.T) {
	e := newTestEngine()
	room := e.CreateRoom("ABCDE", "p0", "Player0")

	require.NoError(t, e.JoinRoom(room, "p1", "Player1"))
	require.Len(t, room.Players, 2)

	// Rejoining the same seat is a no-op, not an error.
	require.NoError(t, e.JoinRoom(room, "p1", "Player1"))
	assert.Len(t, room.Players, 2)

	require.NoError(t, e.JoinRoom(room, "p2", "Player2"))
	require.NoError(t, e.JoinRoom(room, "p3", "Player3"))

	err := e.JoinRoom(room, "p4", "Player4")
	var full *CapacityError
	require.ErrorAs(t, err, &full)
	assert.Equal(t, MaxPlayers, full.Limit)
	assert.Len(t, room.Players, MaxPlayers)
}

func TestJoinRoomClosedAfterStart(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)

	err := e.JoinRoom(room, "late", "Latecomer")
	var val *ValidationError
	assert.ErrorAs(t, err, &val)
}

func TestStartRoundValidation(t *testing.T) {
	e := newTestEngine()
	room := e.CreateRoom("ABCDE", "p0", "Player0")

	assert.Error(t, e.StartRound(room, "p0", false), "needs 2 players")

	require.NoError(t, e.JoinRoom(room, "p1", "Player1"))
	assert.Error(t, e.StartRound(room, "p0", false), "p1 not ready")
	assert.Error(t, e.StartRound(room, "p1", false), "host only")

	require.NoError(t, e.ToggleReady(room, "p1"))
	require.NoError(t, e.StartRound(room, "p0", false))
}

func TestStartRoundDealsNoHands(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 3)

	assert.Equal(t, models.StatusPlaying, room.Status)
	assert.Equal(t, models.TurnDraw, room.TurnState)
	assert.Equal(t, 0, room.TurnIndex)
	assert.Len(t, room.DiscardPile, 2, "discard seeded with two cards")
	assert.Len(t, room.Deck, models.DeckSize-2)
	for _, p := range room.Players {
		assert.Empty(t, p.Hand)
		assert.Empty(t, p.Tableau)
	}
	assert.Equal(t, models.DeckSize, room.CardCount())
}

func TestContinuedRoundRotatesOpeningSeat(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 3)
	room.Status = models.StatusRoundEnd
	room.TurnIndex = 0
	room.Players[1].Score = 12

	require.NoError(t, e.StartRound(room, "p0", true))
	assert.Equal(t, 1, room.TurnIndex)
	assert.Equal(t, 2, room.Round)
	assert.Equal(t, 12, room.Players[1].Score, "cumulative scores survive a continue")
}

func TestNextRoundWaitsForReady(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.TurnState = models.TurnActionPhase
	room.Players[0].Hand = cards(models.TypeShell, models.TypeShell, models.TypeShell, models.TypeShell)
	require.NoError(t, e.Stop(room, "p0"))
	require.Equal(t, models.StatusRoundEnd, room.Status)
	require.False(t, room.Players[1].Ready, "resolution resets non-host ready flags")

	assert.Error(t, e.StartRound(room, "p0", true), "p1 has not readied up")

	require.NoError(t, e.ToggleReady(room, "p1"))
	require.NoError(t, e.StartRound(room, "p0", true))
	assert.Equal(t, models.StatusPlaying, room.Status)
	assert.Equal(t, 2, room.Round)
}

func TestReadyCannotChangeMidGame(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	assert.Error(t, e.ToggleReady(room, "p1"))
}

func TestNewGameFromFinished(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.Status = models.StatusFinished
	room.WinnerID = "p0"
	room.Players[0].Score = 42
	room.Players[0].Ready = true
	room.Players[1].Ready = true

	assert.Error(t, e.StartRound(room, "p0", true), "a finished game cannot continue")

	require.NoError(t, e.StartRound(room, "p0", false))
	assert.Equal(t, models.StatusPlaying, room.Status)
	assert.Empty(t, room.WinnerID)
	assert.Equal(t, 0, room.Players[0].Score, "fresh game resets scores")
	assert.Equal(t, 1, room.Round)
}

func TestTurnFlowDrawChooseEnd(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)

	// Only a draw is legal right now.
	assert.Error(t, e.ChooseKept(room, "p0", 0))
	assert.Error(t, e.EndTurn(room, "p0"))

	require.NoError(t, e.DrawDeck(room, "p0"))
	require.Len(t, room.TempDraw, 2)
	assert.Equal(t, models.TurnDrawDecision, room.TurnState)
	assert.Error(t, e.DrawDeck(room, "p0"), "cannot draw twice")

	discardBefore := len(room.DiscardPile)
	require.NoError(t, e.ChooseKept(room, "p0", 1))
	assert.Len(t, room.Players[0].Hand, 1)
	assert.Len(t, room.DiscardPile, discardBefore+1)
	assert.Empty(t, room.TempDraw)
	assert.Equal(t, models.TurnActionPhase, room.TurnState)

	require.NoError(t, e.EndTurn(room, "p0"))
	assert.Equal(t, 1, room.TurnIndex)
	assert.Equal(t, models.TurnDraw, room.TurnState)

	assert.Equal(t, models.DeckSize, room.CardCount())
}

func TestChooseKeptRejectsBadIndex(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	require.NoError(t, e.DrawDeck(room, "p0"))

	assert.Error(t, e.ChooseKept(room, "p0", -1))
	assert.Error(t, e.ChooseKept(room, "p0", 2))
	require.NoError(t, e.ChooseKept(room, "p0", 0))
}

func TestDrawDiscardTakesTop(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	top := room.DiscardPile[len(room.DiscardPile)-1]

	require.NoError(t, e.DrawDiscard(room, "p0"))
	require.Len(t, room.Players[0].Hand, 1)
	assert.Equal(t, top.ID, room.Players[0].Hand[0].ID)
	assert.Len(t, room.DiscardPile, 1)
	assert.Equal(t, models.TurnActionPhase, room.TurnState)
}

func TestOutOfTurnCommandsRejected(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 3)

	assert.Error(t, e.DrawDeck(room, "p1"))
	assert.Error(t, e.DrawDiscard(room, "p2"))
	assert.Error(t, e.Stop(room, "p1"))
	assert.Len(t, room.Players[1].Hand, 0, "rejected commands leave no trace")
}

func TestBoatPairGrantsExtraTurn(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.Players[0].Hand = cards(models.TypeBoat, models.TypeBoat, models.TypeShell)
	room.TurnState = models.TurnActionPhase

	require.NoError(t, e.PlayDuo(room, "p0", 0, 1))
	assert.Equal(t, 0, room.TurnIndex, "same seat keeps the turn")
	assert.Equal(t, models.TurnDraw, room.TurnState, "back to the draw phase")
	assert.Len(t, room.Players[0].Tableau, 2)
	assert.Len(t, room.Players[0].Hand, 1)
}

func TestFishPairDrawsFromDeck(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.Players[0].Hand = cards(models.TypeFish, models.TypeFish)
	room.TurnState = models.TurnActionPhase
	deckBefore := len(room.Deck)

	require.NoError(t, e.PlayDuo(room, "p0", 0, 1))
	assert.Len(t, room.Players[0].Hand, 1, "pair left, deck card arrived")
	assert.Equal(t, deckBefore-1, len(room.Deck))
	assert.Equal(t, models.TurnActionPhase, room.TurnState, "no extra turn from fish")
}

func TestCrabPairPicksFromDiscard(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.Players[0].Hand = cards(models.TypeCrab, models.TypeCrab)
	room.TurnState = models.TurnActionPhase
	wanted := room.DiscardPile[0]

	require.NoError(t, e.PlayDuo(room, "p0", 0, 1))
	assert.Equal(t, models.PendingCrabPick, room.PendingEffect)

	// Nothing else may proceed until the pick resolves.
	assert.Error(t, e.EndTurn(room, "p0"))
	assert.Error(t, e.PlayDuo(room, "p0", 0, 1))

	require.NoError(t, e.ResolveCrabPick(room, "p0", wanted.ID))
	assert.Equal(t, models.PendingNone, room.PendingEffect)
	require.Len(t, room.Players[0].Hand, 1)
	assert.Equal(t, wanted.ID, room.Players[0].Hand[0].ID)
	assert.Len(t, room.DiscardPile, 1)
}

func TestCrabPairWithEmptyDiscardIsNoOp(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.Players[0].Hand = cards(models.TypeCrab, models.TypeCrab)
	room.TurnState = models.TurnActionPhase
	room.Deck = append(room.Deck, room.DiscardPile...)
	room.DiscardPile = []models.Card{}

	require.NoError(t, e.PlayDuo(room, "p0", 0, 1))
	assert.Equal(t, models.PendingNone, room.PendingEffect, "no pick with an empty pile")
}

func TestSharkPairStealsRandomCard(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 3)
	room.Players[0].Hand = cards(models.TypeShark, models.TypeShark)
	room.Players[1].Hand = cards(models.TypeShell, models.TypeOctopus, models.TypePenguin)
	room.TurnState = models.TurnActionPhase

	require.NoError(t, e.PlayDuo(room, "p0", 0, 1))
	require.Equal(t, models.PendingSharkSteal, room.PendingEffect)

	assert.Error(t, e.ResolveSharkSteal(room, "p0", "p0"), "cannot target yourself")
	assert.Error(t, e.ResolveSharkSteal(room, "p0", "p2"), "target holds no cards")

	require.NoError(t, e.ResolveSharkSteal(room, "p0", "p1"))
	assert.Equal(t, models.PendingNone, room.PendingEffect)
	assert.Len(t, room.Players[0].Hand, 1)
	assert.Len(t, room.Players[1].Hand, 2)
}

func TestSharkPairWithNoTargetsIsNoOp(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.Players[0].Hand = cards(models.TypeShark, models.TypeShark)
	room.TurnState = models.TurnActionPhase

	require.NoError(t, e.PlayDuo(room, "p0", 0, 1))
	assert.Equal(t, models.PendingNone, room.PendingEffect)
}

func TestPlayDuoRejectsBadPairs(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.Players[0].Hand = cards(models.TypeCrab, models.TypeBoat, models.TypeShell, models.TypeShell)
	room.TurnState = models.TurnActionPhase

	assert.Error(t, e.PlayDuo(room, "p0", 0, 1), "mismatched duo types")
	assert.Error(t, e.PlayDuo(room, "p0", 2, 3), "shells are not duo cards")
	assert.Error(t, e.PlayDuo(room, "p0", 0, 0), "same card twice")
	assert.Error(t, e.PlayDuo(room, "p0", 0, 9), "index out of range")
	assert.Len(t, room.Players[0].Hand, 4, "rejections leave the hand alone")
}

func TestStopRequiresThreshold(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.TurnState = models.TurnActionPhase

	assert.Error(t, e.Stop(room, "p0"), "empty hand is below the threshold")

	room.Players[0].Hand = cards(models.TypeShell, models.TypeShell, models.TypeShell, models.TypeShell)
	require.NoError(t, e.Stop(room, "p0"))
	assert.Equal(t, models.StatusRoundEnd, room.Status)
	assert.Equal(t, 8, room.Players[0].Score)
	assert.Equal(t, 0, room.Players[1].Score)
	assert.True(t, room.Players[0].Ready, "host auto-readies for the next round")
	assert.False(t, room.Players[1].Ready)
}

func TestCallLastChanceOpensBettingLap(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 3)
	room.Players[0].Hand = cards(models.TypeShell, models.TypeShell, models.TypeShell, models.TypeShell)
	room.TurnState = models.TurnActionPhase

	require.NoError(t, e.CallLastChance(room, "p0"))
	assert.Equal(t, models.StatusLastChance, room.Status)
	assert.Equal(t, "p0", room.BettingPlayerID)
	assert.Equal(t, 1, room.TurnIndex, "play moves to the next seat")
	assert.Equal(t, models.TurnDraw, room.TurnState)

	// No second bet and no stop during the lap.
	room.TurnState = models.TurnActionPhase
	room.Players[1].Hand = cards(models.TypeShell, models.TypeShell, models.TypeShell, models.TypeShell)
	assert.Error(t, e.CallLastChance(room, "p1"))
	assert.Error(t, e.Stop(room, "p1"))
}

func TestDrawWithBothPilesEmptyForcesRoundEnd(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.Deck = []models.Card{}
	room.DiscardPile = []models.Card{}

	require.NoError(t, e.DrawDeck(room, "p0"))
	assert.Equal(t, models.StatusRoundEnd, room.Status)
}

func TestDrawDeckRejectedWhenOnlyDiscardRemains(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.Deck = []models.Card{}
	room.DiscardPile = cards(models.TypeShell)

	require.Error(t, e.DrawDeck(room, "p0"))
	assert.Equal(t, models.TurnDraw, room.TurnState, "turn stays open")
	assert.Empty(t, room.TempDraw)

	// The discard draw is the legal move left.
	require.NoError(t, e.DrawDiscard(room, "p0"))
	assert.Equal(t, models.TurnActionPhase, room.TurnState)
}

func TestDrawWithBothPilesEmptySettlesOpenBet(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.Players[0].Hand = cards(models.TypeShell, models.TypeShell, models.TypeShell, models.TypeShell)
	room.TurnState = models.TurnActionPhase
	require.NoError(t, e.CallLastChance(room, "p0"))
	room.Deck = []models.Card{}
	room.DiscardPile = []models.Card{}

	require.NoError(t, e.DrawDeck(room, "p1"))
	assert.Equal(t, models.StatusRoundEnd, room.Status)
	assert.Empty(t, room.BettingPlayerID)
	want := Score(room.Players[0].Hand, room.Players[0].Tableau, true) + LastChanceBonus
	assert.Equal(t, want, room.Players[0].Score, "the bet settles instead of voiding")
}

func TestInstantWinOnFourthMermaid(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.Players[0].Hand = cards(models.TypeMermaid, models.TypeMermaid, models.TypeMermaid)
	room.DiscardPile = append(room.DiscardPile, models.Card{ID: "m4", Type: models.TypeMermaid})

	require.NoError(t, e.DrawDiscard(room, "p0"))
	assert.Equal(t, models.StatusFinished, room.Status)
	assert.Equal(t, "p0", room.WinnerID)
}

func TestKickPlayerLobbyOnly(t *testing.T) {
	e := newTestEngine()
	room := e.CreateRoom("ABCDE", "p0", "Player0")
	require.NoError(t, e.JoinRoom(room, "p1", "Player1"))

	assert.Error(t, e.KickPlayer(room, "p1", "p0"), "host only")
	assert.Error(t, e.KickPlayer(room, "p0", "p0"), "host cannot kick themselves")
	require.NoError(t, e.KickPlayer(room, "p0", "p1"))
	assert.Len(t, room.Players, 1)

	require.NoError(t, e.JoinRoom(room, "p1", "Player1"))
	require.NoError(t, e.ToggleReady(room, "p1"))
	require.NoError(t, e.StartRound(room, "p0", false))
	assert.Error(t, e.KickPlayer(room, "p0", "p1"), "no kicks once playing")
}

func TestLeaveRoomMidGameDiscardsCards(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 3)
	room.Players[1].Hand = room.Deck[:2]
	room.Players[1].Tableau = room.Deck[2:4]
	room.Deck = room.Deck[4:]

	dissolve, err := e.LeaveRoom(room, "p1")
	require.NoError(t, err)
	assert.False(t, dissolve)
	assert.Len(t, room.Players, 2)
	assert.Equal(t, 0, room.TurnIndex, "turn holder unchanged")
	assert.Equal(t, models.DeckSize, room.CardCount(), "leaver's cards went to discard")
}

func TestLeaveRoomHostDissolves(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)

	dissolve, err := e.LeaveRoom(room, "p0")
	require.NoError(t, err)
	assert.True(t, dissolve)
}

func TestLeaveRoomLastOpponentWinsByDefault(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)

	dissolve, err := e.LeaveRoom(room, "p1")
	require.NoError(t, err)
	assert.False(t, dissolve)
	assert.Equal(t, models.StatusFinished, room.Status)
	assert.Equal(t, "p0", room.WinnerID)
}

func TestLeaveRoomBettorCancelsBet(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 3)
	room.Players[1].Hand = cards(models.TypeShell, models.TypeShell, models.TypeShell, models.TypeShell)
	room.TurnIndex = 1
	room.TurnState = models.TurnActionPhase
	require.NoError(t, e.CallLastChance(room, "p1"))
	require.Equal(t, models.StatusLastChance, room.Status)

	_, err := e.LeaveRoom(room, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaying, room.Status)
	assert.Empty(t, room.BettingPlayerID)
}

func TestLeaveRoomDuringBetLapCompletesLap(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 3)
	room.Players[0].Hand = cards(models.TypeShell, models.TypeShell, models.TypeShell, models.TypeShell)
	room.TurnState = models.TurnActionPhase
	require.NoError(t, e.CallLastChance(room, "p0"))
	room.TurnIndex = 2 // p1 already took their lap turn

	dissolve, err := e.LeaveRoom(room, "p2")
	require.NoError(t, err)
	assert.False(t, dissolve)
	assert.Equal(t, models.StatusRoundEnd, room.Status, "the lap closed back on the bettor")
	assert.Empty(t, room.BettingPlayerID)
	want := Score(room.Players[0].Hand, room.Players[0].Tableau, true) + LastChanceBonus
	assert.Equal(t, want, room.Players[0].Score)
}

func TestReturnToLobbyKeepsLogSequence(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 2)
	room.Status = models.StatusRoundEnd
	seqBefore := room.LogSeq
	require.NotZero(t, seqBefore)

	require.NoError(t, e.ReturnToLobby(room, "p0"))
	assert.Equal(t, models.StatusLobby, room.Status)
	assert.Empty(t, room.Logs)
	assert.Equal(t, seqBefore, room.LogSeq, "ids never restart")

	room.AppendLog(models.SeverityNeutral, "fresh entry")
	assert.Greater(t, room.Logs[0].ID, seqBefore)
}

func TestLogIDsStrictlyIncrease(t *testing.T) {
	e := newTestEngine()
	room := newPlayingRoom(t, e, 3)
	require.NoError(t, e.DrawDeck(room, "p0"))
	require.NoError(t, e.ChooseKept(room, "p0", 0))
	require.NoError(t, e.EndTurn(room, "p0"))

	var last int64
	for _, entry := range room.Logs {
		assert.Greater(t, entry.ID, last)
		last = entry.ID
	}
}
