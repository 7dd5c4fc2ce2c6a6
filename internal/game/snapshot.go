package game

import (
	"github.com/google/uuid"

	"github.com/tleroux/skyjo-server/internal/models"
)

// SnapCard is one grid card as seen by a specific observer. Value is only
// present when the card is face up or the observer owns it.
type SnapCard struct {
	Value   *int `json:"value,omitempty"`
	Visible bool `json:"visible"`
}

// SnapPlayer is one seat as seen by a specific observer.
type SnapPlayer struct {
	ID               uuid.UUID               `json:"id"`
	Name             string                  `json:"name"`
	Avatar           string                  `json:"avatar"`
	ConnectionStatus models.ConnectionStatus `json:"connectionStatus"`
	Cards            [][]SnapCard            `json:"cards"`
	Scores           []models.RoundScore     `json:"scores"`
	Score            int                     `json:"score"`
	WantsReplay      bool                    `json:"wantsReplay"`
	IsCurrentTurn    bool                    `json:"isCurrentTurn"`
}

// Snapshot is the full authoritative view of a session for one observer.
// It is the payload of every room update.
type Snapshot struct {
	Code                 string          `json:"code"`
	Status               Status          `json:"status"`
	Turn                 int             `json:"turn"`
	TurnStatus           TurnStatus      `json:"turnStatus"`
	LastTurnStatus       LastTurnStatus  `json:"lastTurnStatus"`
	RoundStatus          RoundStatus     `json:"roundStatus"`
	RoundNumber          int             `json:"roundNumber"`
	AdminID              uuid.UUID       `json:"adminId"`
	FirstFinisherID      *uuid.UUID      `json:"firstFinisherId,omitempty"`
	Players              []SnapPlayer    `json:"players"`
	DrawPileSize         int             `json:"drawPileSize"`
	LastDiscardCardValue *int            `json:"lastDiscardCardValue,omitempty"`
	SelectedCardValue    *int            `json:"selectedCardValue,omitempty"`
	Settings             models.Settings `json:"settings"`
	UpdatedAt            int64           `json:"updatedAt"`
}

// SnapshotFor builds the session view for one observer. Card values are
// included only when the card is face up or the observer owns it; other
// players' hidden cards serialize without a value.
// Assumes lock is held by caller.
func (s *GameSession) SnapshotFor(observer uuid.UUID) Snapshot {
	snap := Snapshot{
		Code:           s.Code,
		Status:         s.Status,
		Turn:           s.TurnIndex,
		TurnStatus:     s.TurnStatus,
		LastTurnStatus: s.LastTurnStatus,
		RoundStatus:    s.RoundStatus,
		RoundNumber:    s.RoundNumber,
		AdminID:        s.AdminID,
		DrawPileSize:   len(s.DrawPile),
		Settings:       s.Settings,
		UpdatedAt:      s.UpdatedAt.UnixMilli(),
	}
	if s.FirstFinisherID != uuid.Nil {
		id := s.FirstFinisherID
		snap.FirstFinisherID = &id
	}
	if len(s.DiscardPile) > 0 {
		v := s.DiscardPile[len(s.DiscardPile)-1]
		snap.LastDiscardCardValue = &v
	}
	if s.SelectedCard != nil && s.SelectedCard.Visible {
		v := s.SelectedCard.Value
		snap.SelectedCardValue = &v
	}

	snap.Players = make([]SnapPlayer, len(s.Players))
	for i, p := range s.Players {
		sp := SnapPlayer{
			ID:               p.ID,
			Name:             p.Name,
			Avatar:           p.Avatar,
			ConnectionStatus: p.Connection,
			Scores:           p.Scores,
			Score:            p.Score(),
			WantsReplay:      p.WantsReplay,
			IsCurrentTurn:    i == s.TurnIndex && s.Status == StatusPlaying,
		}
		isSelf := p.ID == observer
		sp.Cards = make([][]SnapCard, len(p.Cards))
		for ri, row := range p.Cards {
			sp.Cards[ri] = make([]SnapCard, len(row))
			for ci, c := range row {
				sc := SnapCard{Visible: c.Visible}
				if c.Visible || isSelf {
					v := c.Value
					sc.Value = &v
				}
				sp.Cards[ri][ci] = sc
			}
		}
		snap.Players[i] = sp
	}
	return snap
}

// VoteSnapshot is the broadcast view of a kick vote in progress.
type VoteSnapshot struct {
	TargetID      uuid.UUID `json:"targetId"`
	InitiatorID   uuid.UUID `json:"initiatorId"`
	YesVotes      int       `json:"yesVotes"`
	TotalVotes    int       `json:"totalVotes"`
	RequiredVotes int       `json:"requiredVotes"`
	ExpiresAt     int64     `json:"expiresAt"`
}

func voteSnapshot(v *models.KickVote) VoteSnapshot {
	return VoteSnapshot{
		TargetID:      v.TargetID,
		InitiatorID:   v.InitiatorID,
		YesVotes:      v.YesCount(),
		TotalVotes:    len(v.Votes),
		RequiredVotes: v.RequiredVotes,
		ExpiresAt:     v.ExpiresAt.UnixMilli(),
	}
}
