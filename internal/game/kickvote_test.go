package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tleroux/skyjo-server/internal/models"
)

func TestKickVoteQuorumComputedAtCreation(t *testing.T) {
	s, players, _, _ := setupTestSession(t, 5)
	s.Mu.Lock()
	defer s.Mu.Unlock()

	require.NoError(t, s.InitiateKickVote(players[0].ID, players[4].ID))
	vote := s.KickVotes[players[4].ID]
	require.NotNil(t, vote)
	assert.Equal(t, 3, vote.RequiredVotes, "ceil(0.6*5)")
	assert.Equal(t, 1, vote.YesCount(), "initiator auto-votes yes")

	// Players leaving mid-vote do not lower the bar.
	s.Players[3].Connection = "disconnected"
	assert.Equal(t, 3, vote.RequiredVotes)
}

func TestKickVoteSucceedsExactlyAtQuorum(t *testing.T) {
	s, players, emitter, _ := setupTestSession(t, 5)
	s.Mu.Lock()
	defer s.Mu.Unlock()
	target := players[4]

	require.NoError(t, s.InitiateKickVote(players[0].ID, target.ID))
	require.NoError(t, s.CastKickVote(players[1].ID, target.ID, true))
	require.Contains(t, s.KickVotes, target.ID, "2 of 3 yes votes is not quorum")

	require.NoError(t, s.CastKickVote(players[2].ID, target.ID, true))

	assert.NotContains(t, s.KickVotes, target.ID)
	assert.Len(t, s.Players, 4, "target removed")
	assert.Equal(t, EventPlayerKicked, emitter.lastRoomEvent())
}

func TestKickVoteDuplicateBallotRejected(t *testing.T) {
	s, players, _, _ := setupTestSession(t, 5)
	s.Mu.Lock()
	defer s.Mu.Unlock()
	target := players[4]

	require.NoError(t, s.InitiateKickVote(players[0].ID, target.ID))
	require.NoError(t, s.CastKickVote(players[1].ID, target.ID, true))
	assert.ErrorIs(t, s.CastKickVote(players[1].ID, target.ID, true), ErrConflict)
	assert.ErrorIs(t, s.CastKickVote(players[0].ID, target.ID, true), ErrConflict, "initiator already voted")
}

func TestKickVoteOnePerTargetButIndependentTargets(t *testing.T) {
	s, players, _, _ := setupTestSession(t, 5)
	s.Mu.Lock()
	defer s.Mu.Unlock()

	require.NoError(t, s.InitiateKickVote(players[0].ID, players[4].ID))
	assert.ErrorIs(t, s.InitiateKickVote(players[1].ID, players[4].ID), ErrConflict)
	require.NoError(t, s.InitiateKickVote(players[1].ID, players[3].ID), "different target is independent")
	assert.Len(t, s.KickVotes, 2)
}

func TestKickVoteFailsWhenAllVotedShort(t *testing.T) {
	s, players, emitter, sched := setupTestSession(t, 5)
	s.Mu.Lock()
	defer s.Mu.Unlock()
	target := players[4]

	require.NoError(t, s.InitiateKickVote(players[0].ID, target.ID))
	require.NoError(t, s.CastKickVote(players[1].ID, target.ID, false))
	require.NoError(t, s.CastKickVote(players[2].ID, target.ID, false))
	require.NoError(t, s.CastKickVote(players[3].ID, target.ID, false))

	assert.NotContains(t, s.KickVotes, target.ID)
	assert.Len(t, s.Players, 5, "failed vote removes nobody")
	assert.Equal(t, EventKickFailed, emitter.lastRoomEvent())
	assert.False(t, sched.armed(voteTimerKey(target.ID.String())), "expiry timer cancelled on resolution")
}

func TestKickVoteExpiryFails(t *testing.T) {
	s, players, emitter, sched := setupTestSession(t, 5)
	target := players[4]

	s.Mu.Lock()
	require.NoError(t, s.InitiateKickVote(players[0].ID, target.ID))
	s.Mu.Unlock()

	sched.fire(t, voteTimerKey(target.ID.String()))

	s.Mu.Lock()
	defer s.Mu.Unlock()
	assert.NotContains(t, s.KickVotes, target.ID)
	assert.Len(t, s.Players, 5)
	assert.Equal(t, EventKickFailed, emitter.lastRoomEvent())
}

func TestKickVoteAgainstDepartedTargetResolvesGracefully(t *testing.T) {
	s, players, _, _ := setupTestSession(t, 5)
	s.Mu.Lock()
	defer s.Mu.Unlock()
	target := players[4]

	require.NoError(t, s.InitiateKickVote(players[0].ID, target.ID))
	// The target leaves on their own while the vote runs.
	s.Players = s.Players[:4]

	require.NoError(t, s.CastKickVote(players[1].ID, target.ID, true))
	require.NoError(t, s.CastKickVote(players[2].ID, target.ID, true))

	assert.NotContains(t, s.KickVotes, target.ID)
	assert.Len(t, s.Players, 4, "no corruption when the target is already gone")
}

func TestKickVoteTwoPlayerRoomFailsAtCreation(t *testing.T) {
	s, players, emitter, _ := setupTestSession(t, 2)
	s.Mu.Lock()
	defer s.Mu.Unlock()

	// ceil(0.6*2) = 2, but the target cannot vote: the lone eligible
	// ballot is already in, so the vote resolves immediately.
	require.NoError(t, s.InitiateKickVote(players[0].ID, players[1].ID))
	assert.NotContains(t, s.KickVotes, players[1].ID)
	assert.Len(t, s.Players, 2)
	assert.Equal(t, EventKickFailed, emitter.lastRoomEvent())
}

func TestKickingActingPlayerDuringLastLapEndsRound(t *testing.T) {
	s, players, _, _ := setupTestSession(t, 3)
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Status = StatusPlaying
	s.RoundStatus = RoundLastLap
	s.RoundNumber = 1

	a, b, c := players[0], players[1], players[2]
	a.Cards = grid([]int{4})
	b.Cards = grid([]int{6})
	c.Cards = grid([]int{9})
	s.FirstFinisherID = a.ID
	s.TurnIndex = 2
	s.DrawPile = []int{1, 2, 3}
	s.DiscardPile = []int{5}

	// Kicking the acting player completes the lap: the turn would come back
	// to the first finisher, so the round ends instead.
	require.NoError(t, s.InitiateKickVote(a.ID, c.ID))
	require.NoError(t, s.CastKickVote(b.ID, c.ID, true))

	assert.Len(t, s.Players, 2)
	assert.Equal(t, RoundOver, s.RoundStatus)
	assert.NotEqual(t, a.ID, s.currentPlayer().ID, "no second turn for the finisher")
	assert.Equal(t, []models.RoundScore{4}, a.Scores)
	assert.Equal(t, []models.RoundScore{6}, b.Scores)
}

func TestKickingActingPlayerMidLapContinuesLap(t *testing.T) {
	s, players, _, _ := setupTestSession(t, 3)
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Status = StatusPlaying
	s.RoundStatus = RoundLastLap

	a, b, c := players[0], players[1], players[2]
	a.Cards = grid([]int{4})
	b.Cards = grid([]int{6})
	c.Cards = grid([]int{9})
	s.FirstFinisherID = a.ID
	s.TurnIndex = 1
	s.DrawPile = []int{1, 2, 3}
	s.DiscardPile = []int{5}

	require.True(t, s.removePlayer(b.ID))

	assert.Equal(t, RoundLastLap, s.RoundStatus, "C still gets their last turn")
	assert.Equal(t, c.ID, s.currentPlayer().ID)
	assert.Empty(t, a.Scores)
}

func TestKickVoteBallotsArePersisted(t *testing.T) {
	s, players, _, _ := setupTestSession(t, 5)
	saved := 0
	s.PersistFn = func(*GameSession) { saved++ }
	s.Mu.Lock()
	defer s.Mu.Unlock()
	target := players[4]

	require.NoError(t, s.InitiateKickVote(players[0].ID, target.ID))
	assert.Equal(t, 1, saved, "open vote is committed")

	require.NoError(t, s.CastKickVote(players[1].ID, target.ID, false))
	assert.Equal(t, 2, saved, "each ballot is committed")

	require.NoError(t, s.CastKickVote(players[2].ID, target.ID, false))
	require.NoError(t, s.CastKickVote(players[3].ID, target.ID, false))
	assert.Equal(t, 4, saved, "resolution is committed too")
	assert.NotContains(t, s.KickVotes, target.ID)
}

func TestKickVoteUnknownTarget(t *testing.T) {
	s, players, _, _ := setupTestSession(t, 3)
	s.Mu.Lock()
	defer s.Mu.Unlock()
	gone := players[2].ID
	s.Players = s.Players[:2]

	assert.ErrorIs(t, s.InitiateKickVote(players[0].ID, gone), ErrNotFound)
	assert.ErrorIs(t, s.CastKickVote(players[0].ID, gone, true), ErrNotFound)
}
