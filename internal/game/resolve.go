// internal/game/resolve.go
package game

import (
	"fmt"
	"sort"

	"github.com/oceanfold/paperoceans/internal/models"
)

// LastChanceBonus is the flat reward for winning a last-chance bet.
const LastChanceBonus = 5

// WinThreshold returns the cumulative score that ends the game for a given
// table size.
func WinThreshold(playerCount int) int {
	switch playerCount {
	case 4:
		return 30
	case 3:
		return 35
	default:
		return 40
	}
}

// resolveStop settles a round ended by a stop (or a forced stop on card
// exhaustion): every player banks their normal score. The win check runs
// synchronously as part of the same command.
func (e *Engine) resolveStop(room *models.Room) {
	for i := range room.Players {
		p := &room.Players[i]
		p.Score += Score(p.Hand, p.Tableau, false)
		p.Ready = p.ID == room.HostID
	}
	room.Status = models.StatusRoundEnd
	room.DiscardPile = append(room.DiscardPile, room.TempDraw...)
	room.TempDraw = []models.Card{}
	room.PendingEffect = models.PendingNone
	room.BettingPlayerID = ""
	e.checkThresholdWin(room)
}

// resolveLastChance settles the bet once the betting lap completes. The
// bettor wins unless some other player's relaxed score strictly beats theirs;
// ties favor the bettor. Scoring is asymmetric: the winning side banks full
// relaxed scores (the bettor plus a flat bonus), the losing side banks only
// its color-bonus term.
func (e *Engine) resolveLastChance(room *models.Room) {
	bettor := room.PlayerByID(room.BettingPlayerID)
	if bettor == nil {
		// Bettor left mid-lap; fall back to a plain stop.
		e.resolveStop(room)
		return
	}
	bettorScore := Score(bettor.Hand, bettor.Tableau, true)

	bettorWon := true
	for i := range room.Players {
		p := &room.Players[i]
		if p.ID == bettor.ID {
			continue
		}
		if Score(p.Hand, p.Tableau, true) > bettorScore {
			bettorWon = false
			break
		}
	}

	for i := range room.Players {
		p := &room.Players[i]
		isBettor := p.ID == bettor.ID
		switch {
		case bettorWon && isBettor:
			p.Score += bettorScore + LastChanceBonus
		case bettorWon:
			p.Score += ColorBonus(p.Hand, p.Tableau)
		case isBettor:
			p.Score += ColorBonus(p.Hand, p.Tableau)
		default:
			p.Score += Score(p.Hand, p.Tableau, true)
		}
		p.Ready = p.ID == room.HostID
	}

	if bettorWon {
		room.AppendLog(models.SeveritySuccess, fmt.Sprintf("Bet Succeeded! %s gets bonus.", bettor.Name))
	} else {
		room.AppendLog(models.SeverityFailure, fmt.Sprintf("Bet Failed! %s gets minimum.", bettor.Name))
	}
	room.Status = models.StatusRoundEnd
	room.DiscardPile = append(room.DiscardPile, room.TempDraw...)
	room.TempDraw = []models.Card{}
	room.PendingEffect = models.PendingNone
	room.BettingPlayerID = ""
	e.checkThresholdWin(room)
}

// checkThresholdWin finishes the game when the top cumulative score reaches
// the table's threshold. Ties break by original seat order, which the stable
// sort preserves.
func (e *Engine) checkThresholdWin(room *models.Room) {
	if len(room.Players) == 0 {
		return
	}
	ranked := make([]*models.Player, len(room.Players))
	for i := range room.Players {
		ranked[i] = &room.Players[i]
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})
	top := ranked[0]
	if top.Score >= WinThreshold(len(room.Players)) {
		room.Status = models.StatusFinished
		room.WinnerID = top.ID
		room.AppendLog(models.SeveritySuccess, fmt.Sprintf("%s wins the game with %d points!", top.Name, top.Score))
	}
}

// checkInstantWin ends the game on the spot when any player's hand and
// tableau together hold all four mermaids. Runs inside every command that can
// move a card into a hand, so the check commits with the mutation itself and
// no observer has to race to apply it.
func (e *Engine) checkInstantWin(room *models.Room) bool {
	if room.Status != models.StatusPlaying && room.Status != models.StatusLastChance {
		return false
	}
	for i := range room.Players {
		p := &room.Players[i]
		mermaids := 0
		for _, c := range p.Hand {
			if c.Type == models.TypeMermaid {
				mermaids++
			}
		}
		for _, c := range p.Tableau {
			if c.Type == models.TypeMermaid {
				mermaids++
			}
		}
		if mermaids == 4 {
			room.Status = models.StatusFinished
			room.WinnerID = p.ID
			room.PendingEffect = models.PendingNone
			room.AppendLog(models.SeveritySuccess, fmt.Sprintf("INSTANT WIN! %s found all 4 Mermaids!", p.Name))
			return true
		}
	}
	return false
}
