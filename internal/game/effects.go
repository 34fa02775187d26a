// internal/game/effects.go
package game

import (
	"fmt"

	"github.com/oceanfold/paperoceans/internal/models"
)

// PlayDuo moves a matching duo pair from the actor's hand to their tableau
// and applies the pair's effect. Valid only during the action phase with two
// distinct hand cards of the same duo type; anything else rejects without
// mutation. Once the pair validates, effect resolution never fails — effects
// that cannot apply (empty discard, no target cards) degrade to a logged
// no-op.
func (e *Engine) PlayDuo(room *models.Room, actorID string, i, j int) error {
	if err := e.requireTurn(room, actorID, models.TurnActionPhase); err != nil {
		return err
	}
	p := room.CurrentPlayer()
	if i == j || i < 0 || j < 0 || i >= len(p.Hand) || j >= len(p.Hand) {
		return failValidation("pair indices %d,%d out of range", i, j)
	}
	c1, c2 := p.Hand[i], p.Hand[j]
	if c1.Type != c2.Type || c1.TypeInfo().Category != models.CategoryDuo {
		return failValidation("must pick 2 matching duo cards")
	}

	// Remove the higher index first so the lower stays valid.
	hi, lo := i, j
	if lo > hi {
		hi, lo = lo, hi
	}
	p.Hand = append(p.Hand[:hi], p.Hand[hi+1:]...)
	p.Hand = append(p.Hand[:lo], p.Hand[lo+1:]...)
	p.Tableau = append(p.Tableau, c1, c2)
	room.AppendLog(models.SeveritySuccess, fmt.Sprintf("%s played a pair of %ss!", p.Name, c1.TypeInfo().Name))

	switch c1.Type {
	case models.TypeBoat:
		// Extra turn: back to the draw phase for the same seat.
		room.TurnState = models.TurnDraw
		room.AppendLog(models.SeveritySuccess, "Effect: Extra Turn! Draw again.")
	case models.TypeFish:
		if len(room.Deck) > 0 {
			top := room.Deck[len(room.Deck)-1]
			room.Deck = room.Deck[:len(room.Deck)-1]
			p.Hand = append(p.Hand, top)
			room.AppendLog(models.SeverityNeutral, "Effect: Drew a card from deck.")
			e.checkInstantWin(room)
		}
	case models.TypeCrab:
		if len(room.DiscardPile) > 0 {
			room.PendingEffect = models.PendingCrabPick
		}
	case models.TypeShark:
		if e.anyOpponentHoldsCards(room) {
			room.PendingEffect = models.PendingSharkSteal
		} else {
			room.AppendLog(models.SeverityNeutral, "No one to steal from!")
		}
	}
	return nil
}

// ResolveCrabPick completes a crab pair: the actor salvages one card of their
// choice from anywhere in the discard pile.
func (e *Engine) ResolveCrabPick(room *models.Room, actorID, cardID string) error {
	if err := e.requirePending(room, actorID, models.PendingCrabPick); err != nil {
		return err
	}
	idx := -1
	for k, c := range room.DiscardPile {
		if c.ID == cardID {
			idx = k
			break
		}
	}
	if idx < 0 {
		return &NotFoundError{Kind: "card", ID: cardID}
	}
	p := room.CurrentPlayer()
	card := room.DiscardPile[idx]
	room.DiscardPile = append(room.DiscardPile[:idx], room.DiscardPile[idx+1:]...)
	p.Hand = append(p.Hand, card)
	room.PendingEffect = models.PendingNone
	room.AppendLog(models.SeverityNeutral, "Effect: Picked a card from discard.")
	e.checkInstantWin(room)
	return nil
}

// ResolveSharkSteal completes a shark pair: a uniformly random card moves
// from the chosen opponent's hand to the actor's.
func (e *Engine) ResolveSharkSteal(room *models.Room, actorID, targetID string) error {
	if err := e.requirePending(room, actorID, models.PendingSharkSteal); err != nil {
		return err
	}
	if targetID == actorID {
		return failValidation("cannot steal from yourself")
	}
	target := room.PlayerByID(targetID)
	if target == nil {
		return &NotFoundError{Kind: "player", ID: targetID}
	}
	if len(target.Hand) == 0 {
		return failValidation("%s has no cards to steal", target.Name)
	}
	p := room.CurrentPlayer()
	pick := e.rng.Intn(len(target.Hand))
	stolen := target.Hand[pick]
	target.Hand = append(target.Hand[:pick], target.Hand[pick+1:]...)
	p.Hand = append(p.Hand, stolen)
	room.PendingEffect = models.PendingNone
	room.AppendLog(models.SeverityFailure, fmt.Sprintf("Effect: Stole card from %s.", target.Name))
	e.checkInstantWin(room)
	return nil
}

func (e *Engine) requirePending(room *models.Room, actorID string, want models.PendingEffect) error {
	if room.Status != models.StatusPlaying && room.Status != models.StatusLastChance {
		return failValidation("game is not in progress")
	}
	cur := room.CurrentPlayer()
	if cur == nil || cur.ID != actorID {
		return failValidation("it's not your turn")
	}
	if room.PendingEffect != want {
		return failValidation("no %s effect to resolve", want)
	}
	return nil
}

func (e *Engine) anyOpponentHoldsCards(room *models.Room) bool {
	for i := range room.Players {
		if i != room.TurnIndex && len(room.Players[i].Hand) > 0 {
			return true
		}
	}
	return false
}
