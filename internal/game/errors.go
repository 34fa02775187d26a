// internal/game/errors.go
package game

import "fmt"

// ValidationError rejects a command that is legal nowhere in the current
// state: wrong turn, wrong phase, mismatched pair, threshold not met, etc.
// Validation failures never mutate shared state and are surfaced only to the
// initiating actor.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NotFoundError indicates a missing room, player, or card.
type NotFoundError struct {
	Kind string // "room", "player", "card"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// CapacityError indicates a join against a full room.
type CapacityError struct {
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("room is full (max %d players)", e.Limit)
}

// StateConflictError indicates an optimistic write lost a race. Recoverable:
// re-read and retry the command against fresh state.
type StateConflictError struct {
	RoomCode string
	Expected int64
	Actual   int64
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("room %s version conflict: expected %d, found %d", e.RoomCode, e.Expected, e.Actual)
}

// DegenerateStateError classifies a draw attempted with both the deck and the
// discard pile empty. The engine resolves it by forcing a stop rather than
// freezing the turn, but the classification is kept for observability.
type DegenerateStateError struct {
	RoomCode string
}

func (e *DegenerateStateError) Error() string {
	return fmt.Sprintf("room %s: deck and discard pile are both empty", e.RoomCode)
}

func failValidation(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
