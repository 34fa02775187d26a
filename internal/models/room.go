// internal/models/room.go
package models

// RoomStatus is the room lifecycle phase. Exactly one holds at a time.
type RoomStatus string

const (
	StatusLobby      RoomStatus = "lobby"
	StatusPlaying    RoomStatus = "playing"
	StatusLastChance RoomStatus = "last_chance"
	StatusRoundEnd   RoomStatus = "round_end"
	StatusFinished   RoomStatus = "finished"
)

// TurnState sequences a single player's turn.
type TurnState string

const (
	TurnDraw         TurnState = "DRAW"          // must draw from deck or discard
	TurnDrawDecision TurnState = "DRAW_DECISION" // must keep one of two drawn cards
	TurnActionPhase  TurnState = "ACTION_PHASE"  // may play pairs, then end/stop/bet
)

// PendingEffect marks a duo effect awaiting a follow-up selection by the actor.
type PendingEffect string

const (
	PendingNone       PendingEffect = ""
	PendingCrabPick   PendingEffect = "CRAB_PICK"   // pick one card from the discard pile
	PendingSharkSteal PendingEffect = "SHARK_STEAL" // pick an opponent to steal from
)

// LogSeverity classifies a log entry for presentation.
type LogSeverity string

const (
	SeverityNeutral LogSeverity = "neutral"
	SeveritySuccess LogSeverity = "success"
	SeverityFailure LogSeverity = "failure"
	SeverityWarning LogSeverity = "warning"
)

// LogEntry is one line of the room's append-only log. IDs are strictly
// increasing within a room's lifetime, issued from Room.LogSeq.
type LogEntry struct {
	ID       int64       `json:"id"`
	Text     string      `json:"text"`
	Severity LogSeverity `json:"severity"`
}

// Player is one seat in a room. Mutated only through engine commands.
type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Hand    []Card `json:"hand"`
	Tableau []Card `json:"tableau"` // played pairs; scores identically to hand
	Ready   bool   `json:"ready"`
}

// Room is the shared authoritative game document, keyed by its 5-character
// code. Version is the optimistic-concurrency counter maintained by the
// store; every committed write increments it.
type Room struct {
	RoomID          string        `json:"roomId"`
	HostID          string        `json:"hostId"`
	Status          RoomStatus    `json:"status"`
	Players         []Player      `json:"players"`
	Deck            []Card        `json:"deck"`        // end of slice is the draw point
	DiscardPile     []Card        `json:"discardPile"` // end of slice is the top
	TurnIndex       int           `json:"turnIndex"`
	TurnState       TurnState     `json:"turnState"`
	TempDraw        []Card        `json:"tempDraw"` // 0-2 cards pending a keep decision
	PendingEffect   PendingEffect `json:"pendingEffect"`
	BettingPlayerID string        `json:"bettingPlayerId"`
	Round           int           `json:"round"`
	WinnerID        string        `json:"winnerId"`
	Logs            []LogEntry    `json:"logs"`
	LogSeq          int64         `json:"logSeq"`
	Version         int64         `json:"version"`
}

// PlayerByID returns the seat for id, or nil.
func (r *Room) PlayerByID(id string) *Player {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i]
		}
	}
	return nil
}

// PlayerIndex returns the seat index for id, or -1.
func (r *Room) PlayerIndex(id string) int {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// CurrentPlayer returns the seat whose turn it is, or nil if the index is out
// of range (possible transiently after a leave).
func (r *Room) CurrentPlayer() *Player {
	if r.TurnIndex < 0 || r.TurnIndex >= len(r.Players) {
		return nil
	}
	return &r.Players[r.TurnIndex]
}

// AppendLog issues the next log id and appends an entry.
func (r *Room) AppendLog(severity LogSeverity, text string) {
	r.LogSeq++
	r.Logs = append(r.Logs, LogEntry{ID: r.LogSeq, Text: text, Severity: severity})
}

// CardCount is the total number of cards across deck, discard, hands and
// tableaus. Always DeckSize while a round is live.
func (r *Room) CardCount() int {
	n := len(r.Deck) + len(r.DiscardPile) + len(r.TempDraw)
	for i := range r.Players {
		n += len(r.Players[i].Hand) + len(r.Players[i].Tableau)
	}
	return n
}

// Clone deep-copies the room so a command can mutate freely before the
// optimistic write.
func (r *Room) Clone() *Room {
	cp := *r
	cp.Players = make([]Player, len(r.Players))
	for i, p := range r.Players {
		cp.Players[i] = p
		cp.Players[i].Hand = append([]Card(nil), p.Hand...)
		cp.Players[i].Tableau = append([]Card(nil), p.Tableau...)
	}
	cp.Deck = append([]Card(nil), r.Deck...)
	cp.DiscardPile = append([]Card(nil), r.DiscardPile...)
	cp.TempDraw = append([]Card(nil), r.TempDraw...)
	cp.Logs = append([]LogEntry(nil), r.Logs...)
	return &cp
}
