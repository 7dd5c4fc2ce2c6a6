package game

import (
	"github.com/google/uuid"

	"github.com/tleroux/skyjo-server/internal/models"
)

// authorizeTurn verifies the player may act right now and that the action
// matches the expected turn state. Assumes lock is held by caller.
func (s *GameSession) authorizeTurn(playerID uuid.UUID, allowed ...TurnStatus) error {
	if s.Status != StatusPlaying {
		return ErrNotAuthorized
	}
	if s.RoundStatus != RoundPlaying && s.RoundStatus != RoundLastLap {
		return ErrNotAuthorized
	}
	cur := s.currentPlayer()
	if cur == nil || cur.ID != playerID {
		return ErrNotAuthorized
	}
	for _, ts := range allowed {
		if s.TurnStatus == ts {
			return nil
		}
	}
	return ErrInvalidTransition
}

// drawFromPile pops the top of the draw pile, reshuffling the discard pile
// into it first when empty. The reshuffle keeps the most recent discard as
// the new single discard entry. Assumes lock is held by caller.
func (s *GameSession) drawFromPile() (int, error) {
	if len(s.DrawPile) == 0 {
		if len(s.DiscardPile) < 2 {
			return 0, ErrConflict
		}
		top := s.DiscardPile[len(s.DiscardPile)-1]
		rest := s.DiscardPile[:len(s.DiscardPile)-1]
		s.rng.Shuffle(len(rest), func(i, j int) {
			rest[i], rest[j] = rest[j], rest[i]
		})
		s.DrawPile = append(s.DrawPile[:0], rest...)
		s.DiscardPile = []int{top}
		s.log.WithField("cards", len(s.DrawPile)).Info("reshuffled discard pile into draw pile")
	}
	v := s.DrawPile[len(s.DrawPile)-1]
	s.DrawPile = s.DrawPile[:len(s.DrawPile)-1]
	return v, nil
}

// PickFromDrawPile draws the top card into the player's hand.
// Assumes lock is held by caller.
func (s *GameSession) PickFromDrawPile(playerID uuid.UUID) error {
	if err := s.authorizeTurn(playerID, TurnChooseAPile); err != nil {
		return err
	}
	v, err := s.drawFromPile()
	if err != nil {
		return err
	}
	s.SelectedCard = &models.Card{Value: v, Visible: true}
	s.TurnStatus = TurnThrowOrReplace
	s.LastTurnStatus = LastTurnPickFromDraw
	return nil
}

// PickFromDiscardPile takes the top discard into the player's hand. Picking
// from the discard commits the player to replacing a grid card. An empty
// discard pile makes this a no-op.
// Assumes lock is held by caller.
func (s *GameSession) PickFromDiscardPile(playerID uuid.UUID) error {
	if err := s.authorizeTurn(playerID, TurnChooseAPile); err != nil {
		return err
	}
	if len(s.DiscardPile) == 0 {
		return nil
	}
	v := s.DiscardPile[len(s.DiscardPile)-1]
	s.DiscardPile = s.DiscardPile[:len(s.DiscardPile)-1]
	s.SelectedCard = &models.Card{Value: v, Visible: true}
	s.TurnStatus = TurnReplaceACard
	s.LastTurnStatus = LastTurnPickFromDiscard
	return nil
}

// DiscardSelected throws the held card onto the discard pile. The player
// must then reveal one hidden grid card. Only legal after drawing from the
// draw pile. Assumes lock is held by caller.
func (s *GameSession) DiscardSelected(playerID uuid.UUID) error {
	if err := s.authorizeTurn(playerID, TurnThrowOrReplace); err != nil {
		return err
	}
	s.DiscardPile = append(s.DiscardPile, s.SelectedCard.Value)
	s.SelectedCard = nil
	s.TurnStatus = TurnTurnACard
	s.LastTurnStatus = LastTurnThrow
	return nil
}

// ReplaceCard swaps the held card with a grid card; the displaced card goes
// onto the discard pile face up and the turn ends.
// Assumes lock is held by caller.
func (s *GameSession) ReplaceCard(playerID uuid.UUID, row, col int) error {
	if err := s.authorizeTurn(playerID, TurnThrowOrReplace, TurnReplaceACard); err != nil {
		return err
	}
	p := s.currentPlayer()
	cell := p.CardAt(row, col)
	if cell == nil {
		return ErrNotFound
	}
	displaced := cell.Value
	*cell = models.Card{Value: s.SelectedCard.Value, Visible: true}
	s.DiscardPile = append(s.DiscardPile, displaced)
	s.SelectedCard = nil
	s.LastTurnStatus = LastTurnReplace
	s.finishTurn(p)
	return nil
}

// TurnCard flips one hidden grid card face up, completing a turn that
// started by discarding the drawn card. Assumes lock is held by caller.
func (s *GameSession) TurnCard(playerID uuid.UUID, row, col int) error {
	if err := s.authorizeTurn(playerID, TurnTurnACard); err != nil {
		return err
	}
	p := s.currentPlayer()
	cell := p.CardAt(row, col)
	if cell == nil {
		return ErrNotFound
	}
	if cell.Visible {
		return ErrInvalidTransition
	}
	cell.Visible = true
	s.LastTurnStatus = LastTurnTurn
	s.finishTurn(p)
	return nil
}

// RevealInitialCard flips one card during the pre-round reveal phase. Every
// seated player must reveal the configured count before the round starts.
// Assumes lock is held by caller.
func (s *GameSession) RevealInitialCard(playerID uuid.UUID, row, col int) error {
	if s.Status != StatusPlaying || s.RoundStatus != RoundWaitingInitialReveals {
		return ErrNotAuthorized
	}
	p := s.playerByID(playerID)
	if p == nil {
		return ErrNotFound
	}
	if p.RevealedCount() >= s.Settings.InitialTurnedCount {
		return ErrInvalidTransition
	}
	cell := p.CardAt(row, col)
	if cell == nil {
		return ErrNotFound
	}
	if cell.Visible {
		return ErrInvalidTransition
	}
	cell.Visible = true
	s.checkInitialRevealGate()
	return nil
}
