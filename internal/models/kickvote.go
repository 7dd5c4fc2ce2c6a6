package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// KickVoteRatio is the fraction of connected players whose yes votes are
// needed to remove the target.
const KickVoteRatio = 0.6

// KickVote is one in-flight vote to remove a player. The required count is
// fixed at creation; players joining or leaving mid-vote do not move it.
type KickVote struct {
	TargetID      uuid.UUID          `json:"targetId"`
	InitiatorID   uuid.UUID          `json:"initiatorId"`
	Votes         map[uuid.UUID]bool `json:"votes"`
	RequiredVotes int                `json:"requiredVotes"`
	ExpiresAt     time.Time          `json:"expiresAt"`
}

// NewKickVote records the initiator's automatic yes vote and freezes the
// quorum against the current connected player count.
func NewKickVote(targetID, initiatorID uuid.UUID, connectedCount int, ttl time.Duration) *KickVote {
	v := &KickVote{
		TargetID:      targetID,
		InitiatorID:   initiatorID,
		Votes:         map[uuid.UUID]bool{initiatorID: true},
		RequiredVotes: int(math.Ceil(KickVoteRatio * float64(connectedCount))),
		ExpiresAt:     time.Now().Add(ttl),
	}
	return v
}

// HasVoted reports whether the player already cast a vote.
func (v *KickVote) HasVoted(playerID uuid.UUID) bool {
	_, ok := v.Votes[playerID]
	return ok
}

// YesCount returns the number of yes votes cast so far.
func (v *KickVote) YesCount() int {
	n := 0
	for _, yes := range v.Votes {
		if yes {
			n++
		}
	}
	return n
}

// Passed reports whether the quorum has been reached.
func (v *KickVote) Passed() bool {
	return v.YesCount() >= v.RequiredVotes
}
