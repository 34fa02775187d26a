// internal/game/score_test.go
package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oceanfold/paperoceans/internal/models"
)

// cards builds card instances with synthetic ids for scoring and engine tests.
func cards(types ...models.CardTypeID) []models.Card {
	out := make([]models.Card, len(types))
	for i, t := range types {
		out[i] = models.Card{ID: fmt.Sprintf("%s-%d", t, i), Type: t}
	}
	return out
}

func TestScoreDuoPairs(t *testing.T) {
	assert.Equal(t, 0, Score(cards(models.TypeCrab), nil, false), "single duo card scores nothing")
	assert.Equal(t, 1, Score(cards(models.TypeCrab, models.TypeCrab), nil, false))
	assert.Equal(t, 1, Score(cards(models.TypeCrab, models.TypeCrab, models.TypeCrab), nil, false), "odd card does not score")
	assert.Equal(t, 2, Score(cards(models.TypeCrab, models.TypeCrab, models.TypeCrab, models.TypeCrab), nil, false))

	// Pairs pool across hand and tableau.
	assert.Equal(t, 1, Score(cards(models.TypeBoat), cards(models.TypeBoat), false))

	// Different duo types do not pair with each other.
	assert.Equal(t, 0, Score(cards(models.TypeFish, models.TypeShark), nil, false))
}

func TestScoreCollectors(t *testing.T) {
	assert.Equal(t, 4, Score(cards(models.TypeShell, models.TypeShell), nil, false))
	assert.Equal(t, 9, Score(cards(models.TypeOctopus, models.TypeOctopus, models.TypeOctopus), nil, false))

	penguinScores := []int{0, 1, 3, 5, 5}
	for n, want := range penguinScores {
		hand := make([]models.CardTypeID, n)
		for i := range hand {
			hand[i] = models.TypePenguin
		}
		assert.Equalf(t, want, Score(cards(hand...), nil, false), "%d penguins", n)
	}

	assert.Equal(t, 0, Score(cards(models.TypeSailor), nil, false), "a lone sailor scores nothing")
	assert.Equal(t, 5, Score(cards(models.TypeSailor, models.TypeSailor), nil, false))
}

func TestScoreMultipliers(t *testing.T) {
	// Multipliers add the base card count on top of whatever those cards
	// already scored; without base cards they add nothing.
	assert.Equal(t, 0, Score(cards(models.TypeShip), nil, false), "ship without boats")
	assert.Equal(t, 3, Score(cards(models.TypeShip, models.TypeBoat, models.TypeBoat), nil, false), "1 pair + 2 boats")

	assert.Equal(t, 1, Score(cards(models.TypeShoal, models.TypeFish), nil, false))
	assert.Equal(t, 4, Score(cards(models.TypeShoal, models.TypeFish, models.TypeFish, models.TypeFish), nil, false), "1 pair + 3 fish")

	assert.Equal(t, 7, Score(cards(models.TypeSnowman, models.TypePenguin, models.TypePenguin), nil, false), "stepped 3 + 2x2")
	assert.Equal(t, 11, Score(cards(models.TypeSnowman, models.TypePenguin, models.TypePenguin, models.TypePenguin), nil, false), "stepped 5 + 2x3")

	assert.Equal(t, 11, Score(cards(models.TypeCaptain, models.TypeSailor, models.TypeSailor), nil, false), "sailor 5 + 3x2")
	assert.Equal(t, 3, Score(cards(models.TypeCaptain, models.TypeSailor), nil, false))
}

func TestScoreColorBonus(t *testing.T) {
	// Two red crabs form the majority; one mermaid scores it once.
	hand := cards(models.TypeCrab, models.TypeCrab, models.TypeMermaid)
	assert.Equal(t, 3, Score(hand, nil, false), "1 pair + 1x2 majority")

	// Two mermaids double the majority.
	hand = cards(models.TypeCrab, models.TypeCrab, models.TypeMermaid, models.TypeMermaid)
	assert.Equal(t, 5, Score(hand, nil, false))

	// Without a mermaid the majority scores only under the relaxed rule.
	hand = cards(models.TypeCrab, models.TypeCrab, models.TypeCrab)
	assert.Equal(t, 1, Score(hand, nil, false))
	assert.Equal(t, 4, Score(hand, nil, true))

	// Mermaids are multicolor and never count toward a majority themselves.
	hand = cards(models.TypeMermaid, models.TypeMermaid)
	assert.Equal(t, 0, Score(hand, nil, false))
}

func TestColorBonusTerm(t *testing.T) {
	hand := cards(models.TypeCrab, models.TypeCrab, models.TypeCrab)
	assert.Equal(t, 3, ColorBonus(hand, nil))

	hand = cards(models.TypeCrab, models.TypeCrab, models.TypeMermaid, models.TypeMermaid)
	assert.Equal(t, 4, ColorBonus(hand, nil))

	assert.Equal(t, 0, ColorBonus(nil, nil))
}

func TestScoreIsPure(t *testing.T) {
	hand := cards(models.TypeCrab, models.TypeCrab, models.TypeMermaid)
	tableau := cards(models.TypeBoat, models.TypeBoat)
	first := Score(hand, tableau, true)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(hand, tableau, true))
	}
	assert.Equal(t, models.TypeCrab, hand[0].Type, "inputs are not mutated")
	assert.Len(t, hand, 3)
	assert.Len(t, tableau, 2)
}
