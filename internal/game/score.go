// internal/game/score.go
package game

import "github.com/oceanfold/paperoceans/internal/models"

// Score computes a player's point total from hand and tableau pooled as one
// multiset; played and unplayed cards of a type score identically. Pure and
// deterministic.
//
// relaxed applies the last-chance color-bonus rule: the color majority scores
// even without a mermaid. It is set only during last-chance resolution, never
// for a plain stop.
func Score(hand, tableau []models.Card, relaxed bool) int {
	counts := typeCounts(hand, tableau)
	score := 0

	// Duos score per completed pair across the whole pool.
	for _, t := range []models.CardTypeID{models.TypeCrab, models.TypeBoat, models.TypeFish, models.TypeShark} {
		score += counts[t] / 2
	}

	// Collectors.
	score += counts[models.TypeShell] * 2
	score += counts[models.TypeOctopus] * 3
	switch p := counts[models.TypePenguin]; {
	case p >= 3:
		score += 5
	case p == 2:
		score += 3
	case p == 1:
		score++
	}
	if counts[models.TypeSailor] == 2 {
		score += 5
	}

	// Multipliers gate on presence.
	if counts[models.TypeShip] > 0 {
		score += counts[models.TypeBoat]
	}
	if counts[models.TypeShoal] > 0 {
		score += counts[models.TypeFish]
	}
	if counts[models.TypeSnowman] > 0 {
		score += counts[models.TypePenguin] * 2
	}
	if counts[models.TypeCaptain] > 0 {
		score += counts[models.TypeSailor] * 3
	}

	// Mermaid color bonus.
	mermaids := counts[models.TypeMermaid]
	maxColor := maxColorCount(counts)
	if mermaids > 0 {
		score += mermaids * maxColor
	} else if relaxed {
		score += maxColor
	}

	return score
}

// ColorBonus is the color-bonus term of Score alone: mermaids x majority if
// any mermaids are held, otherwise the bare majority. Used by last-chance
// settlement, where the losing side banks only this term.
func ColorBonus(hand, tableau []models.Card) int {
	counts := typeCounts(hand, tableau)
	maxColor := maxColorCount(counts)
	if m := counts[models.TypeMermaid]; m > 0 {
		return m * maxColor
	}
	return maxColor
}

func typeCounts(hand, tableau []models.Card) map[models.CardTypeID]int {
	counts := make(map[models.CardTypeID]int, 13)
	for _, c := range hand {
		counts[c.Type]++
	}
	for _, c := range tableau {
		counts[c.Type]++
	}
	return counts
}

// maxColorCount returns the largest card count among non-multi color groups.
func maxColorCount(counts map[models.CardTypeID]int) int {
	colors := make(map[models.ColorGroup]int)
	for t, n := range counts {
		info := models.CardTypes[t]
		if info.Color == models.ColorMulti {
			continue
		}
		colors[info.Color] += n
	}
	max := 0
	for _, n := range colors {
		if n > max {
			max = n
		}
	}
	return max
}
