package game

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tleroux/skyjo-server/internal/models"
)

// startRound shuffles a fresh deck, deals every seat a full grid, seeds the
// discard pile with one card and opens the initial reveal phase.
// Assumes lock is held by caller.
func (s *GameSession) startRound() {
	s.timers.Cancel(roundRestartTimerKey)
	s.RoundNumber++
	s.FirstFinisherID = uuid.Nil
	s.SelectedCard = nil
	s.TurnStatus = TurnChooseAPile
	s.LastTurnStatus = LastTurnNone

	deck := models.DeckValues()
	s.rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	s.DrawPile = deck
	s.DiscardPile = s.DiscardPile[:0]

	rows, cols := s.Settings.CardsPerColumn, s.Settings.CardsPerRow
	for _, p := range s.Players {
		grid := make([][]models.Card, rows)
		for r := 0; r < rows; r++ {
			grid[r] = make([]models.Card, cols)
			for c := 0; c < cols; c++ {
				grid[r][c] = models.Card{Value: s.mustDraw()}
			}
		}
		p.Cards = grid
	}

	s.DiscardPile = append(s.DiscardPile, s.mustDraw())

	if s.Settings.InitialTurnedCount > 0 {
		s.RoundStatus = RoundWaitingInitialReveals
	} else {
		s.RoundStatus = RoundPlaying
		s.TurnIndex = s.startingSeat()
	}
	s.log.WithField("round", s.RoundNumber).Info("round started")
}

// mustDraw is the deal-time draw. Settings.Validate bounds the table size
// against the deck, so an exhausted pile here is a programming error.
func (s *GameSession) mustDraw() int {
	v, err := s.drawFromPile()
	if err != nil {
		s.log.WithField("players", len(s.Players)).Panic("deck exhausted during deal")
	}
	return v
}

// checkInitialRevealGate moves the round into active play once every seated
// player has revealed the required count. Disconnected players never block
// the gate; it is re-run when a grace period expires.
// Assumes lock is held by caller.
func (s *GameSession) checkInitialRevealGate() {
	if s.RoundStatus != RoundWaitingInitialReveals {
		return
	}
	for _, p := range s.Players {
		if p.IsSeated() && p.RevealedCount() < s.Settings.InitialTurnedCount {
			return
		}
	}
	s.RoundStatus = RoundPlaying
	s.TurnIndex = s.startingSeat()
	s.log.WithField("turn", s.TurnIndex).Info("initial reveals complete, round is live")
}

// startingSeat picks who opens the round: the seated player with the
// highest sum of revealed values; ties go to the single highest revealed
// card among the tied players. Assumes lock is held by caller.
func (s *GameSession) startingSeat() int {
	best := -1
	for i, p := range s.Players {
		if !p.IsSeated() {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		bp := s.Players[best]
		sum, bestSum := p.RevealedSum(), bp.RevealedSum()
		if sum > bestSum || (sum == bestSum && p.HighestRevealedValue() > bp.HighestRevealedValue()) {
			best = i
		}
	}
	if best < 0 {
		best = 0
	}
	return best
}

// finishTurn runs end-of-turn processing for the acting player and hands
// the turn on, unless the round ends. Assumes lock is held by caller.
func (s *GameSession) finishTurn(p *models.Player) {
	s.clearCompletedLines(p)

	if s.FirstFinisherID == uuid.Nil && p.AllCardsRevealed() {
		s.FirstFinisherID = p.ID
		s.RoundStatus = RoundLastLap
		s.log.WithField("player", p.ID).Info("first finisher, last lap begins")
	}

	if s.roundWouldEnd() {
		s.endRound()
		return
	}
	s.advanceTurn()
}

// advanceTurn moves to the next seated player and resets the turn state.
// Assumes lock is held by caller.
func (s *GameSession) advanceTurn() {
	if next := s.nextSeatFrom(s.TurnIndex); next >= 0 {
		s.TurnIndex = next
	}
	s.TurnStatus = TurnChooseAPile
}

// roundWouldEnd reports whether advancing from the current seat lands on or
// passes the first finisher, meaning the last lap is complete.
// Assumes lock is held by caller.
func (s *GameSession) roundWouldEnd() bool {
	if s.FirstFinisherID == uuid.Nil {
		return false
	}
	finisher := s.seatOf(s.FirstFinisherID)
	if finisher < 0 {
		return false
	}
	n := len(s.Players)
	for step := 1; step <= n; step++ {
		j := (s.TurnIndex + step) % n
		if j == finisher {
			return true
		}
		if s.Players[j].IsSeated() {
			// Someone else still gets a turn before the finisher.
			return false
		}
	}
	return true
}

// clearCompletedLines removes fully revealed, all-equal columns and then
// rows from the grid, appending the removed cards to the discard pile.
// Column removals are applied before rows are evaluated, so a removal can
// cascade against the reduced grid. Assumes lock is held by caller.
func (s *GameSession) clearCompletedLines(p *models.Player) {
	if s.Settings.AllowSkyjoForColumn {
		for col := 0; col < s.gridWidth(p); {
			if s.columnComplete(p, col) {
				s.removeColumn(p, col)
				continue
			}
			col++
		}
	}
	if s.Settings.AllowSkyjoForRow {
		for row := 0; row < len(p.Cards); {
			if lineComplete(p.Cards[row]) {
				for _, c := range p.Cards[row] {
					s.DiscardPile = append(s.DiscardPile, c.Value)
				}
				p.Cards = append(p.Cards[:row], p.Cards[row+1:]...)
				continue
			}
			row++
		}
	}
}

func (s *GameSession) gridWidth(p *models.Player) int {
	if len(p.Cards) == 0 {
		return 0
	}
	return len(p.Cards[0])
}

func (s *GameSession) columnComplete(p *models.Player, col int) bool {
	if len(p.Cards) < 2 {
		return false
	}
	column := make([]models.Card, 0, len(p.Cards))
	for _, row := range p.Cards {
		if col >= len(row) {
			return false
		}
		column = append(column, row[col])
	}
	return lineComplete(column)
}

func (s *GameSession) removeColumn(p *models.Player, col int) {
	for ri := range p.Cards {
		s.DiscardPile = append(s.DiscardPile, p.Cards[ri][col].Value)
		p.Cards[ri] = append(p.Cards[ri][:col], p.Cards[ri][col+1:]...)
	}
}

// lineComplete reports whether every card is face up with the same value.
// Single-card lines never clear.
func lineComplete(line []models.Card) bool {
	if len(line) < 2 {
		return false
	}
	for _, c := range line {
		if !c.Visible || c.Value != line[0].Value {
			return false
		}
	}
	return true
}

// endRound reveals every grid, records round scores, applies the
// first-finisher penalty and either finishes the game or schedules the next
// round. A player disconnected at scoring time gets a sentinel entry
// instead of a total summed from a stale hand.
// Assumes lock is held by caller.
func (s *GameSession) endRound() {
	s.RoundStatus = RoundOver

	roundScores := make(map[uuid.UUID]int, len(s.Players))
	for _, p := range s.Players {
		if !p.IsSeated() {
			p.Scores = append(p.Scores, models.ScoreNotCounted)
			continue
		}
		p.RevealAll()
		roundScores[p.ID] = p.GridSum()
	}

	// First-finisher penalty: beaten or tied by anyone else, the finisher's
	// round score is multiplied.
	if score, ok := roundScores[s.FirstFinisherID]; ok {
		for id, other := range roundScores {
			if id != s.FirstFinisherID && other <= score {
				roundScores[s.FirstFinisherID] = score * s.Settings.FirstPlayerMultiplierPenalty
				s.log.WithFields(logrus.Fields{
					"player": s.FirstFinisherID,
					"score":  roundScores[s.FirstFinisherID],
				}).Info("first finisher penalty applied")
				break
			}
		}
	}

	for _, p := range s.Players {
		if score, ok := roundScores[p.ID]; ok {
			p.Scores = append(p.Scores, models.RoundScore(score))
		}
	}

	for _, p := range s.Players {
		if p.Score() >= s.Settings.ScoreToEndGame {
			s.Status = StatusFinished
			s.log.WithField("rounds", s.RoundNumber).Info("game finished")
			return
		}
	}

	s.timers.Schedule(roundRestartTimerKey, s.timings.RoundRestartDelay, func() {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		if s.Status != StatusPlaying || s.RoundStatus != RoundOver {
			return
		}
		s.startRound()
		s.commit()
	})
}

// forceSkipTurn completes the current player's turn as a no-op after their
// grace period expired mid-turn. A card held in hand is discarded so the
// deck stays whole. Assumes lock is held by caller.
func (s *GameSession) forceSkipTurn() {
	p := s.currentPlayer()
	if p == nil {
		return
	}
	if s.SelectedCard != nil {
		s.DiscardPile = append(s.DiscardPile, s.SelectedCard.Value)
		s.SelectedCard = nil
	}
	s.finishTurn(p)
}
