// internal/game/engine.go
package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oceanfold/paperoceans/internal/models"
)

const (
	// MaxPlayers caps a room at four seats.
	MaxPlayers = 4
	// StopThreshold is the round score required to stop or call last chance.
	StopThreshold = 7
)

// Engine applies commands to room documents. Every command is a synchronous
// pure computation over the room it is given: it either mutates the room and
// returns nil, or returns an error and leaves the room untouched. The caller
// owns persistence; commands never block.
//
// Randomness (shuffles, shark steals) flows through the injected source so
// games are reproducible under test.
type Engine struct {
	rng *rand.Rand
}

// NewEngine builds an engine around the given random source. A nil source
// falls back to a time-seeded one. The source is wrapped so commands can be
// applied from concurrent connection goroutines.
func NewEngine(src rand.Source) *Engine {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Engine{rng: rand.New(&lockedSource{src: src})}
}

// lockedSource serializes access to a rand.Source.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// CreateRoom builds a fresh lobby document hosted by the creator. The deck
// stays empty until the first round starts.
func (e *Engine) CreateRoom(code, hostID, hostName string) *models.Room {
	return &models.Room{
		RoomID: code,
		HostID: hostID,
		Status: models.StatusLobby,
		Players: []models.Player{{
			ID:      hostID,
			Name:    hostName,
			Hand:    []models.Card{},
			Tableau: []models.Card{},
			Ready:   true,
		}},
		Deck:        []models.Card{},
		DiscardPile: []models.Card{},
		TurnState:   models.TurnDraw,
		TempDraw:    []models.Card{},
		Round:       1,
		Logs:        []models.LogEntry{},
	}
}

// JoinRoom seats a new player. Joining a room you already occupy is a no-op,
// so a reconnecting client can replay the command safely.
func (e *Engine) JoinRoom(room *models.Room, actorID, name string) error {
	if room.PlayerByID(actorID) != nil {
		return nil
	}
	if room.Status != models.StatusLobby {
		return failValidation("game already in progress")
	}
	if len(room.Players) >= MaxPlayers {
		return &CapacityError{Limit: MaxPlayers}
	}
	room.Players = append(room.Players, models.Player{
		ID:      actorID,
		Name:    name,
		Hand:    []models.Card{},
		Tableau: []models.Card{},
	})
	room.AppendLog(models.SeverityNeutral, fmt.Sprintf("%s joined the room.", name))
	return nil
}

// ToggleReady flips the actor's ready flag. Valid in the lobby and on the
// round-end and final screens, where the next round or game waits on everyone.
func (e *Engine) ToggleReady(room *models.Room, actorID string) error {
	switch room.Status {
	case models.StatusLobby, models.StatusRoundEnd, models.StatusFinished:
	default:
		return failValidation("ready state cannot change mid-game")
	}
	p := room.PlayerByID(actorID)
	if p == nil {
		return &NotFoundError{Kind: "player", ID: actorID}
	}
	p.Ready = !p.Ready
	return nil
}

// KickPlayer removes a seat. Host only, lobby only.
func (e *Engine) KickPlayer(room *models.Room, actorID, targetID string) error {
	if actorID != room.HostID {
		return failValidation("only the host can kick players")
	}
	if room.Status != models.StatusLobby {
		return failValidation("players can only be kicked from the lobby")
	}
	if targetID == room.HostID {
		return failValidation("the host cannot kick themselves")
	}
	idx := room.PlayerIndex(targetID)
	if idx < 0 {
		return &NotFoundError{Kind: "player", ID: targetID}
	}
	name := room.Players[idx].Name
	room.Players = append(room.Players[:idx], room.Players[idx+1:]...)
	room.AppendLog(models.SeverityWarning, fmt.Sprintf("%s was removed from the room.", name))
	return nil
}

// LeaveRoom removes the actor's seat. Returns dissolve=true when the host
// leaves: the whole room is deleted rather than re-hosted, matching the
// room's lifecycle. A mid-game leaver's cards go to the discard pile so the
// card total stays intact.
func (e *Engine) LeaveRoom(room *models.Room, actorID string) (dissolve bool, err error) {
	if actorID == room.HostID {
		return true, nil
	}
	idx := room.PlayerIndex(actorID)
	if idx < 0 {
		return false, &NotFoundError{Kind: "player", ID: actorID}
	}
	leaver := room.Players[idx]
	inGame := room.Status == models.StatusPlaying || room.Status == models.StatusLastChance

	if inGame {
		room.DiscardPile = append(room.DiscardPile, leaver.Hand...)
		room.DiscardPile = append(room.DiscardPile, leaver.Tableau...)
		wasCurrent := idx == room.TurnIndex
		if wasCurrent {
			// Abandon any half-finished turn.
			room.DiscardPile = append(room.DiscardPile, room.TempDraw...)
			room.TempDraw = []models.Card{}
			room.PendingEffect = models.PendingNone
		}
		if room.Status == models.StatusLastChance && room.BettingPlayerID == actorID {
			room.Status = models.StatusPlaying
			room.BettingPlayerID = ""
			room.AppendLog(models.SeverityWarning, "The betting player left; the bet is off.")
		}
		room.Players = append(room.Players[:idx], room.Players[idx+1:]...)
		if idx < room.TurnIndex {
			room.TurnIndex--
		}
		if len(room.Players) > 0 {
			room.TurnIndex %= len(room.Players)
		} else {
			room.TurnIndex = 0
		}
		if wasCurrent {
			room.TurnState = models.TurnDraw
		}
		room.AppendLog(models.SeverityWarning, fmt.Sprintf("%s left the game.", leaver.Name))
		if len(room.Players) == 1 {
			room.Status = models.StatusFinished
			room.WinnerID = room.Players[0].ID
			room.AppendLog(models.SeveritySuccess, fmt.Sprintf("%s wins by default.", room.Players[0].Name))
		}
		// Removing a seat can land the turn on the betting player, which
		// means the lap is complete and the bet must settle.
		if room.Status == models.StatusLastChance {
			if cur := room.CurrentPlayer(); cur != nil && cur.ID == room.BettingPlayerID {
				e.resolveLastChance(room)
			}
		}
		return false, nil
	}

	room.Players = append(room.Players[:idx], room.Players[idx+1:]...)
	if room.TurnIndex >= len(room.Players) && len(room.Players) > 0 {
		room.TurnIndex %= len(room.Players)
	}
	room.AppendLog(models.SeverityNeutral, fmt.Sprintf("%s left the room.", leaver.Name))
	return false, nil
}

// StartRound shuffles a fresh deck, seeds the discard pile with two cards,
// and opens play. Host only. continueGame keeps cumulative scores and rotates
// the opening seat; otherwise scores reset and the host's seat opens.
func (e *Engine) StartRound(room *models.Room, actorID string, continueGame bool) error {
	if actorID != room.HostID {
		return failValidation("only the host can start a round")
	}
	switch room.Status {
	case models.StatusLobby:
		if len(room.Players) < 2 {
			return failValidation("need at least 2 players to start")
		}
	case models.StatusRoundEnd:
		// Next round of a running game.
	case models.StatusFinished:
		if continueGame {
			return failValidation("the game is over; start a new one")
		}
	default:
		return failValidation("cannot start a round while status is %s", room.Status)
	}
	for i := range room.Players {
		if !room.Players[i].Ready {
			return failValidation("%s is not ready", room.Players[i].Name)
		}
	}

	deck := NewDeck(e.rng)
	for i := range room.Players {
		p := &room.Players[i]
		p.Hand = []models.Card{}
		p.Tableau = []models.Card{}
		if !continueGame {
			p.Score = 0
		}
	}

	// Seed the discard pile with the two top cards.
	room.DiscardPile = []models.Card{deck[len(deck)-1], deck[len(deck)-2]}
	room.Deck = deck[:len(deck)-2]

	if continueGame {
		room.TurnIndex = (room.TurnIndex + 1) % len(room.Players)
		room.Round++
		room.AppendLog(models.SeverityNeutral, fmt.Sprintf("--- Round %d Start ---", room.Round))
	} else {
		room.TurnIndex = 0
		room.Round = 1
		room.AppendLog(models.SeverityNeutral, "--- Game Start ---")
	}
	room.Status = models.StatusPlaying
	room.TurnState = models.TurnDraw
	room.TempDraw = []models.Card{}
	room.PendingEffect = models.PendingNone
	room.BettingPlayerID = ""
	room.WinnerID = ""
	return nil
}

// ReturnToLobby resets the room to lobby defaults. Host only. The log is
// cleared but the id sequence keeps counting so entry ids stay strictly
// increasing over the room's lifetime.
func (e *Engine) ReturnToLobby(room *models.Room, actorID string) error {
	if actorID != room.HostID {
		return failValidation("only the host can return the room to the lobby")
	}
	for i := range room.Players {
		p := &room.Players[i]
		p.Hand = []models.Card{}
		p.Tableau = []models.Card{}
		p.Score = 0
		p.Ready = p.ID == room.HostID
	}
	room.Status = models.StatusLobby
	room.Deck = []models.Card{}
	room.DiscardPile = []models.Card{}
	room.Logs = []models.LogEntry{}
	room.Round = 1
	room.TurnIndex = 0
	room.TurnState = models.TurnDraw
	room.TempDraw = []models.Card{}
	room.PendingEffect = models.PendingNone
	room.BettingPlayerID = ""
	room.WinnerID = ""
	return nil
}

// DrawDeck pulls two cards into the transient buffer and awaits a keep
// decision. With both piles exhausted the draw cannot be satisfied; instead
// of freezing the turn the engine forces the round to resolve (settling the
// bet first if a betting lap is open). With the deck empty and only the
// protected top discard card left, the deck draw is rejected so the player
// takes the discard card instead.
func (e *Engine) DrawDeck(room *models.Room, actorID string) error {
	if err := e.requireTurn(room, actorID, models.TurnDraw); err != nil {
		return err
	}
	if len(room.Deck) == 0 && len(room.DiscardPile) == 0 {
		room.AppendLog(models.SeverityWarning, "No cards left to draw. Ending the round.")
		if room.Status == models.StatusLastChance {
			e.resolveLastChance(room)
		} else {
			e.resolveStop(room)
		}
		return nil
	}
	if len(room.Deck) == 0 && len(room.DiscardPile) == 1 {
		return failValidation("the deck is exhausted; draw the discard card instead")
	}
	drawn := e.drawN(room, 2)
	room.TempDraw = drawn
	room.TurnState = models.TurnDrawDecision
	room.AppendLog(models.SeverityNeutral, fmt.Sprintf("%s draws 2...", room.CurrentPlayer().Name))
	return nil
}

// ChooseKept keeps one buffered card and discards the other.
func (e *Engine) ChooseKept(room *models.Room, actorID string, index int) error {
	if err := e.requireTurn(room, actorID, models.TurnDrawDecision); err != nil {
		return err
	}
	if index < 0 || index >= len(room.TempDraw) {
		return failValidation("draw choice %d out of range", index)
	}
	p := room.CurrentPlayer()
	kept := room.TempDraw[index]
	p.Hand = append(p.Hand, kept)
	for i, c := range room.TempDraw {
		if i != index {
			room.DiscardPile = append(room.DiscardPile, c)
		}
	}
	room.TempDraw = []models.Card{}
	room.TurnState = models.TurnActionPhase
	room.AppendLog(models.SeverityNeutral, "...kept 1 and discarded 1.")
	e.checkInstantWin(room)
	return nil
}

// DrawDiscard takes the top discard card straight into hand, skipping the
// keep decision.
func (e *Engine) DrawDiscard(room *models.Room, actorID string) error {
	if err := e.requireTurn(room, actorID, models.TurnDraw); err != nil {
		return err
	}
	if len(room.DiscardPile) == 0 {
		return failValidation("discard pile is empty")
	}
	p := room.CurrentPlayer()
	top := room.DiscardPile[len(room.DiscardPile)-1]
	room.DiscardPile = room.DiscardPile[:len(room.DiscardPile)-1]
	p.Hand = append(p.Hand, top)
	room.TurnState = models.TurnActionPhase
	room.AppendLog(models.SeverityNeutral, fmt.Sprintf("%s took %s from discard.", p.Name, top.TypeInfo().Name))
	e.checkInstantWin(room)
	return nil
}

// EndTurn passes play to the next seat, or completes the betting lap when the
// turn would return to the bettor.
func (e *Engine) EndTurn(room *models.Room, actorID string) error {
	if err := e.requireTurn(room, actorID, models.TurnActionPhase); err != nil {
		return err
	}
	nextIdx := (room.TurnIndex + 1) % len(room.Players)
	if room.Status == models.StatusLastChance && room.Players[nextIdx].ID == room.BettingPlayerID {
		e.resolveLastChance(room)
		return nil
	}
	room.TurnIndex = nextIdx
	room.TurnState = models.TurnDraw
	room.AppendLog(models.SeverityNeutral, fmt.Sprintf("Turn: %s", room.Players[nextIdx].Name))
	return nil
}

// Stop ends the round safely. Requires the normal game phase and a current
// round score at or above the stop threshold.
func (e *Engine) Stop(room *models.Room, actorID string) error {
	if err := e.requireTurn(room, actorID, models.TurnActionPhase); err != nil {
		return err
	}
	if room.Status != models.StatusPlaying {
		return failValidation("cannot stop during %s", room.Status)
	}
	p := room.CurrentPlayer()
	if pts := Score(p.Hand, p.Tableau, false); pts < StopThreshold {
		return failValidation("need %d points to stop, have %d", StopThreshold, pts)
	}
	room.AppendLog(models.SeveritySuccess, fmt.Sprintf("%s called STOP! Round ended safely.", p.Name))
	e.resolveStop(room)
	return nil
}

// CallLastChance bets that the actor holds the best hand. Every other player
// takes one final turn before the bet settles. Same eligibility as Stop.
func (e *Engine) CallLastChance(room *models.Room, actorID string) error {
	if err := e.requireTurn(room, actorID, models.TurnActionPhase); err != nil {
		return err
	}
	if room.Status != models.StatusPlaying {
		return failValidation("last chance can only be called during normal play")
	}
	p := room.CurrentPlayer()
	if pts := Score(p.Hand, p.Tableau, false); pts < StopThreshold {
		return failValidation("need %d points to call last chance, have %d", StopThreshold, pts)
	}
	room.Status = models.StatusLastChance
	room.BettingPlayerID = p.ID
	room.TurnIndex = (room.TurnIndex + 1) % len(room.Players)
	room.TurnState = models.TurnDraw
	room.AppendLog(models.SeverityWarning, fmt.Sprintf("%s called LAST CHANCE! Everyone gets 1 turn to beat them.", p.Name))
	return nil
}

// requireTurn validates that the game is live, the actor holds the turn, the
// turn is in the wanted phase, and no duo effect is awaiting resolution.
func (e *Engine) requireTurn(room *models.Room, actorID string, want models.TurnState) error {
	if room.Status != models.StatusPlaying && room.Status != models.StatusLastChance {
		return failValidation("game is not in progress")
	}
	cur := room.CurrentPlayer()
	if cur == nil || cur.ID != actorID {
		return failValidation("it's not your turn")
	}
	if room.TurnState != want {
		return failValidation("expected %s, turn is in %s", want, room.TurnState)
	}
	if room.PendingEffect != models.PendingNone {
		return failValidation("resolve the pending %s effect first", room.PendingEffect)
	}
	return nil
}
