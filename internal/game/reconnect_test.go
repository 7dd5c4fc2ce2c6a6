package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tleroux/skyjo-server/internal/models"
)

func TestDisconnectInLobbyRemovesImmediately(t *testing.T) {
	s, players, _, sched := setupTestSession(t, 3)
	s.Mu.Lock()
	defer s.Mu.Unlock()

	s.HandleDisconnect(players[2].ID, false)

	assert.Len(t, s.Players, 2)
	assert.False(t, sched.armed(graceTimerKey(players[2].ID.String())), "no grace period outside active play")
}

func TestLastLobbyPlayerLeavingTearsDownRoom(t *testing.T) {
	s, players, _, _ := setupTestSession(t, 2)
	tornDown := false
	s.OnTeardown = func(code string) { tornDown = true }

	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.HandleDisconnect(players[0].ID, true)
	s.HandleDisconnect(players[1].ID, true)

	assert.True(t, tornDown)
	assert.Equal(t, StatusStopped, s.Status)
}

func TestDisconnectDuringPlayStartsGraceTimer(t *testing.T) {
	s, players, _, sched := setupTestSession(t, 3)
	startTestGame(t, s, players)

	s.Mu.Lock()
	s.HandleDisconnect(players[1].ID, false)
	assert.Equal(t, models.ConnectionStatusConnectionLost, players[1].Connection)
	assert.Len(t, s.Players, 3, "seat survives the grace period")
	s.Mu.Unlock()

	assert.True(t, sched.armed(graceTimerKey(players[1].ID.String())))
}

func TestAdminHandoffOnDisconnect(t *testing.T) {
	s, players, _, _ := setupTestSession(t, 3)
	startTestGame(t, s, players)

	s.Mu.Lock()
	defer s.Mu.Unlock()
	require.Equal(t, players[0].ID, s.AdminID)
	s.HandleDisconnect(players[0].ID, false)
	assert.Equal(t, players[1].ID, s.AdminID, "next connected player in join order")
}

func TestReconnectInsideGraceWindow(t *testing.T) {
	s, players, emitter, sched := setupTestSession(t, 3)
	startTestGame(t, s, players)
	p := players[1]

	s.Mu.Lock()
	s.HandleDisconnect(p.ID, false)
	require.NoError(t, s.HandleReconnect(p.ID, "sock-2"))
	s.Mu.Unlock()

	assert.Equal(t, models.ConnectionStatusConnected, p.Connection)
	assert.Equal(t, "sock-2", p.SocketID)
	assert.False(t, sched.armed(graceTimerKey(p.ID.String())), "grace timer cancelled")

	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	assert.NotEmpty(t, emitter.playerEvents[p.ID], "reconnected player gets a fresh snapshot")
}

func TestDoubleReconnectIsIdempotent(t *testing.T) {
	s, players, _, sched := setupTestSession(t, 3)
	startTestGame(t, s, players)
	p := players[1]

	s.Mu.Lock()
	seat := s.TurnIndex
	s.HandleDisconnect(p.ID, false)
	require.NoError(t, s.HandleReconnect(p.ID, "sock-2"))
	require.NoError(t, s.HandleReconnect(p.ID, "sock-3"))
	s.Mu.Unlock()

	assert.Equal(t, models.ConnectionStatusConnected, p.Connection)
	assert.Equal(t, "sock-3", p.SocketID)
	assert.False(t, sched.armed(graceTimerKey(p.ID.String())))

	s.Mu.Lock()
	defer s.Mu.Unlock()
	assert.Equal(t, seat, s.TurnIndex, "no double-counted turn advancement")
}

func TestGraceExpiryOffTurnMarksDisconnected(t *testing.T) {
	s, players, _, sched := setupTestSession(t, 3)
	startTestGame(t, s, players)

	s.Mu.Lock()
	victim := s.Players[(s.TurnIndex+1)%3]
	seat := s.TurnIndex
	s.HandleDisconnect(victim.ID, false)
	s.Mu.Unlock()

	sched.fire(t, graceTimerKey(victim.ID.String()))

	s.Mu.Lock()
	defer s.Mu.Unlock()
	assert.Equal(t, models.ConnectionStatusDisconnected, victim.Connection)
	assert.Len(t, s.Players, 3, "seat and scores are preserved")
	assert.Equal(t, seat, s.TurnIndex, "off-turn expiry does not advance the turn")
}

func TestGraceExpiryOnTurnForcesSkip(t *testing.T) {
	s, players, _, sched := setupTestSession(t, 3)
	startTestGame(t, s, players)

	s.Mu.Lock()
	cur := s.currentPlayer()
	// Mid-turn with a drawn card in hand.
	require.NoError(t, s.PickFromDrawPile(cur.ID))
	s.HandleDisconnect(cur.ID, false)
	s.Mu.Unlock()

	sched.fire(t, graceTimerKey(cur.ID.String()))

	s.Mu.Lock()
	defer s.Mu.Unlock()
	assert.Nil(t, s.SelectedCard, "held card discarded by the forced skip")
	assert.NotEqual(t, cur.ID, s.currentPlayer().ID)
	assert.Equal(t, TurnChooseAPile, s.TurnStatus)
	assert.Equal(t, models.TotalDeckSize(), cardsInPlay(s))
}

func TestGraceExpiryBelowMinimumStopsSession(t *testing.T) {
	s, players, _, sched := setupTestSession(t, 2)
	startTestGame(t, s, players)
	tornDown := false
	s.OnTeardown = func(code string) { tornDown = true }

	s.Mu.Lock()
	s.HandleDisconnect(players[0].ID, false)
	s.Mu.Unlock()

	sched.fire(t, graceTimerKey(players[0].ID.String()))

	assert.True(t, tornDown)
	s.Mu.Lock()
	defer s.Mu.Unlock()
	assert.Equal(t, StatusStopped, s.Status)
}

func TestGraceExpiryUnblocksInitialRevealGate(t *testing.T) {
	s, players, _, sched := setupTestSession(t, 2)
	s.Mu.Lock()
	require.NoError(t, s.Start(players[0].ID))
	a, b := s.Players[0], s.Players[1]
	require.NoError(t, s.RevealInitialCard(a.ID, 0, 0))
	require.NoError(t, s.RevealInitialCard(a.ID, 0, 1))
	require.Equal(t, RoundWaitingInitialReveals, s.RoundStatus, "B still blocks the gate")
	s.HandleDisconnect(b.ID, false)
	s.Mu.Unlock()

	// A third seat keeps the session above the minimum; it has already
	// revealed its share.
	s.Mu.Lock()
	c := models.NewPlayer("C", "", "")
	c.Cards = grid([]int{1, 2})
	s.Players = append(s.Players, c)
	s.Mu.Unlock()

	sched.fire(t, graceTimerKey(b.ID.String()))

	s.Mu.Lock()
	defer s.Mu.Unlock()
	assert.NotEqual(t, RoundWaitingInitialReveals, s.RoundStatus)
}

func TestReconnectBeatsExpiryRace(t *testing.T) {
	s, players, _, sched := setupTestSession(t, 3)
	startTestGame(t, s, players)
	p := players[1]

	s.Mu.Lock()
	s.HandleDisconnect(p.ID, false)
	require.NoError(t, s.HandleReconnect(p.ID, "sock-2"))
	// Simulate a callback that had already fired before the cancel landed:
	// it must find the player connected and discard itself.
	s.onGraceExpired(p.ID)
	s.Mu.Unlock()

	assert.Equal(t, models.ConnectionStatusConnected, p.Connection)
	assert.False(t, sched.armed(graceTimerKey(p.ID.String())))
}
