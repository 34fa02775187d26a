// internal/game/deck.go
package game

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/oceanfold/paperoceans/internal/models"
)

// NewDeck expands the static catalog into uniquely-identified card instances
// and shuffles them with the provided source. The end of the returned slice
// is the draw point.
func NewDeck(rng *rand.Rand) []models.Card {
	deck := make([]models.Card, 0, models.DeckSize)
	for _, ct := range catalogOrder {
		info := models.CardTypes[ct]
		for i := 0; i < info.Count; i++ {
			deck = append(deck, models.Card{
				ID:   fmt.Sprintf("%s-%s", ct, uuid.NewString()[:8]),
				Type: ct,
			})
		}
	}
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// catalogOrder fixes the expansion order so deck construction is
// deterministic for a given shuffle seed.
var catalogOrder = []models.CardTypeID{
	models.TypeCrab, models.TypeBoat, models.TypeFish, models.TypeShark,
	models.TypeShell, models.TypeOctopus, models.TypePenguin, models.TypeSailor,
	models.TypeMermaid, models.TypeShip, models.TypeShoal, models.TypeSnowman,
	models.TypeCaptain,
}

// drawN pops up to n cards off the end of the deck, reshuffling the discard
// pile back in first if the deck runs short. The reshuffle keeps the current
// top discard card aside so the discard pile is never emptied by it. Returns
// fewer than n cards only when both piles are exhausted.
func (e *Engine) drawN(room *models.Room, n int) []models.Card {
	if len(room.Deck) < n {
		e.reshuffleFromDiscard(room)
	}
	take := n
	if take > len(room.Deck) {
		take = len(room.Deck)
	}
	drawn := make([]models.Card, 0, take)
	for i := 0; i < take; i++ {
		top := room.Deck[len(room.Deck)-1]
		room.Deck = room.Deck[:len(room.Deck)-1]
		drawn = append(drawn, top)
	}
	return drawn
}

// reshuffleFromDiscard merges everything except the top discard card back
// into the deck and shuffles. No-op unless the discard pile holds at least
// two cards, since the top card always stays put.
func (e *Engine) reshuffleFromDiscard(room *models.Room) {
	if len(room.DiscardPile) < 2 {
		return
	}
	top := room.DiscardPile[len(room.DiscardPile)-1]
	rest := room.DiscardPile[:len(room.DiscardPile)-1]

	room.Deck = append(room.Deck, rest...)
	e.rng.Shuffle(len(room.Deck), func(i, j int) {
		room.Deck[i], room.Deck[j] = room.Deck[j], room.Deck[i]
	})
	room.DiscardPile = []models.Card{top}
	room.AppendLog(models.SeverityNeutral, "Deck reshuffled from discard.")
}
