package game

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tleroux/skyjo-server/internal/models"
)

// InitiateKickVote opens a vote to remove target. One vote per target at a
// time; votes against different targets run independently. The initiator's
// yes vote is recorded immediately, and a single-player quorum can resolve
// the vote at creation. Assumes lock is held by caller.
func (s *GameSession) InitiateKickVote(initiatorID, targetID uuid.UUID) error {
	if s.playerByID(initiatorID) == nil || s.playerByID(targetID) == nil {
		return ErrNotFound
	}
	if initiatorID == targetID {
		return ErrNotAuthorized
	}
	if _, exists := s.KickVotes[targetID]; exists {
		return ErrConflict
	}

	vote := models.NewKickVote(targetID, initiatorID, s.connectedCount(), s.timings.KickVoteTTL)
	s.KickVotes[targetID] = vote
	s.log.WithFields(logrus.Fields{
		"target":    targetID,
		"initiator": initiatorID,
		"required":  vote.RequiredVotes,
	}).Info("kick vote started")

	s.timers.Schedule(voteTimerKey(targetID.String()), s.timings.KickVoteTTL, func() {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		s.onKickVoteExpired(targetID)
	})

	s.evaluateKickVote(vote)
	return nil
}

// CastKickVote records one ballot. Each connected player votes at most
// once; the target cannot vote on their own removal.
// Assumes lock is held by caller.
func (s *GameSession) CastKickVote(voterID, targetID uuid.UUID, yes bool) error {
	vote, ok := s.KickVotes[targetID]
	if !ok {
		return ErrNotFound
	}
	voter := s.playerByID(voterID)
	if voter == nil || !voter.IsConnected() {
		return ErrNotAuthorized
	}
	if voterID == targetID {
		return ErrNotAuthorized
	}
	if vote.HasVoted(voterID) {
		return ErrConflict
	}
	vote.Votes[voterID] = yes
	s.evaluateKickVote(vote)
	return nil
}

// evaluateKickVote resolves the vote if it has reached a terminal state:
// success the instant yes votes reach the quorum, failure once every
// eligible voter has voted without reaching it. Otherwise it broadcasts
// progress. Assumes lock is held by caller.
func (s *GameSession) evaluateKickVote(vote *models.KickVote) {
	if vote.Passed() {
		s.resolveKickSuccess(vote)
		return
	}

	// Everyone connected except the target is eligible.
	eligible := 0
	for _, p := range s.Players {
		if p.IsConnected() && p.ID != vote.TargetID {
			eligible++
		}
	}
	if len(vote.Votes) >= eligible {
		s.resolveKickFailure(vote)
		return
	}
	s.emitRoom(EventKickVote, voteSnapshot(vote))
	s.commit()
}

// resolveKickSuccess removes the target and discards the vote. A target
// that already left on their own resolves gracefully.
// Assumes lock is held by caller.
func (s *GameSession) resolveKickSuccess(vote *models.KickVote) {
	s.discardKickVote(vote.TargetID)
	s.log.WithField("target", vote.TargetID).Info("kick vote passed")

	removed := s.removePlayer(vote.TargetID)
	if !removed {
		s.log.WithField("target", vote.TargetID).Warn("kick target already gone")
	}
	s.emitRoom(EventPlayerKicked, voteSnapshot(vote))

	if len(s.Players) == 0 || (s.Status == StatusPlaying && s.connectedCount() < models.MinPlayers) {
		s.teardown()
		return
	}
	s.commit()
}

// resolveKickFailure discards the vote and tells the room.
// Assumes lock is held by caller.
func (s *GameSession) resolveKickFailure(vote *models.KickVote) {
	s.discardKickVote(vote.TargetID)
	s.log.WithField("target", vote.TargetID).Info("kick vote failed")
	s.emitRoom(EventKickFailed, voteSnapshot(vote))
	s.commit()
}

// onKickVoteExpired is the timer path to failure. A vote that resolved just
// before the callback acquired the lock is already gone from the map.
// Assumes lock is held by caller.
func (s *GameSession) onKickVoteExpired(targetID uuid.UUID) {
	vote, ok := s.KickVotes[targetID]
	if !ok {
		return
	}
	s.resolveKickFailure(vote)
}

// discardKickVote drops the record and its expiry timer.
// Assumes lock is held by caller.
func (s *GameSession) discardKickVote(targetID uuid.UUID) {
	delete(s.KickVotes, targetID)
	s.timers.Cancel(voteTimerKey(targetID.String()))
}
