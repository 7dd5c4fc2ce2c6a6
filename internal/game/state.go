package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/tleroux/skyjo-server/internal/models"
)

// SessionState is the full-fidelity serialized form of a session, used by
// the persistence collaborator. Unlike Snapshot it carries every card value
// and must never be sent to a client.
type SessionState struct {
	ID              uuid.UUID        `json:"id"`
	Code            string           `json:"code"`
	Status          Status           `json:"status"`
	Players         []*models.Player `json:"players"`
	TurnIndex       int              `json:"turnIndex"`
	AdminID         uuid.UUID        `json:"adminId"`
	Settings        models.Settings  `json:"settings"`
	DrawPile        []int            `json:"drawPile"`
	DiscardPile     []int            `json:"discardPile"`
	SelectedCard    *models.Card     `json:"selectedCard,omitempty"`
	TurnStatus      TurnStatus       `json:"turnStatus"`
	LastTurnStatus  LastTurnStatus   `json:"lastTurnStatus"`
	RoundStatus     RoundStatus      `json:"roundStatus"`
	RoundNumber     int              `json:"roundNumber"`
	FirstFinisherID uuid.UUID        `json:"firstFinisherId"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// State captures a deep copy of the session for persistence, so the
// serializing goroutine never races a later mutation.
// Assumes lock is held by caller.
func (s *GameSession) State() SessionState {
	players := make([]*models.Player, len(s.Players))
	for i, p := range s.Players {
		cp := *p
		cp.Cards = make([][]models.Card, len(p.Cards))
		for ri, row := range p.Cards {
			cp.Cards[ri] = append([]models.Card(nil), row...)
		}
		cp.Scores = append([]models.RoundScore(nil), p.Scores...)
		players[i] = &cp
	}
	var selected *models.Card
	if s.SelectedCard != nil {
		c := *s.SelectedCard
		selected = &c
	}
	return SessionState{
		ID:              s.ID,
		Code:            s.Code,
		Status:          s.Status,
		Players:         players,
		TurnIndex:       s.TurnIndex,
		AdminID:         s.AdminID,
		Settings:        s.Settings,
		DrawPile:        append([]int(nil), s.DrawPile...),
		DiscardPile:     append([]int(nil), s.DiscardPile...),
		SelectedCard:    selected,
		TurnStatus:      s.TurnStatus,
		LastTurnStatus:  s.LastTurnStatus,
		RoundStatus:     s.RoundStatus,
		RoundNumber:     s.RoundNumber,
		FirstFinisherID: s.FirstFinisherID,
		UpdatedAt:       s.UpdatedAt,
	}
}

// Restore rebuilds a live session from a persisted state. Restored players
// are marked connection-lost so their grace timers can decide their fate
// once the session is registered and commands start flowing again.
func Restore(state SessionState, timings Timings, sched Scheduler) *GameSession {
	s := NewGameSession(state.Settings, timings, sched)
	s.ID = state.ID
	s.Code = state.Code
	s.Status = state.Status
	s.Players = state.Players
	s.TurnIndex = state.TurnIndex
	s.AdminID = state.AdminID
	s.DrawPile = state.DrawPile
	s.DiscardPile = state.DiscardPile
	s.SelectedCard = state.SelectedCard
	s.TurnStatus = state.TurnStatus
	s.LastTurnStatus = state.LastTurnStatus
	s.RoundStatus = state.RoundStatus
	s.RoundNumber = state.RoundNumber
	s.FirstFinisherID = state.FirstFinisherID
	s.UpdatedAt = state.UpdatedAt
	for _, p := range s.Players {
		if p.IsConnected() {
			p.Connection = models.ConnectionStatusConnectionLost
		}
	}
	s.log = s.log.WithField("restored", true)
	return s
}
