package matchmaking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tleroux/skyjo-server/internal/game"
	"github.com/tleroux/skyjo-server/internal/models"
)

func addLobby(t *testing.T, reg *game.Registry, mutate func(*game.GameSession)) *game.GameSession {
	t.Helper()
	s := game.NewGameSession(models.DefaultSettings(), game.DefaultTimings(), game.NewTimerScheduler())
	reg.Add(s)

	s.Mu.Lock()
	defer s.Mu.Unlock()
	require.NoError(t, s.AddPlayer(models.NewPlayer("A", "", "")))
	if mutate != nil {
		mutate(s)
	}
	return s
}

func TestPickRoomCreatesWhenPoolIsEmpty(t *testing.T) {
	reg := game.NewRegistry(game.NopStore{}, game.DefaultTimings())
	f := NewFinder(reg)
	assert.Equal(t, "", f.PickRoom(), "no open lobby means a fresh room")
}

func TestPickRoomSkipsIneligibleLobbies(t *testing.T) {
	reg := game.NewRegistry(game.NopStore{}, game.DefaultTimings())
	f := NewFinder(reg)

	addLobby(t, reg, func(s *game.GameSession) { s.Settings.Private = true })
	addLobby(t, reg, func(s *game.GameSession) { s.Status = game.StatusPlaying })
	addLobby(t, reg, func(s *game.GameSession) { s.Settings.MaxPlayers = 1 })
	addLobby(t, reg, func(s *game.GameSession) { s.UpdatedAt = time.Now().Add(-time.Hour) })

	assert.Equal(t, "", f.PickRoom())
}

func TestPickRoomEventuallyJoinsAnOpenLobby(t *testing.T) {
	reg := game.NewRegistry(game.NopStore{}, game.DefaultTimings())
	f := NewFinder(reg)

	codes := map[string]bool{}
	for i := 0; i < 5; i++ {
		codes[addLobby(t, reg, nil).Code] = true
	}

	// With a full pool the create chance is only the base, so a handful of
	// picks lands in an existing lobby with overwhelming probability.
	joined := false
	for i := 0; i < 200 && !joined; i++ {
		if code := f.PickRoom(); code != "" {
			assert.True(t, codes[code], "picked code belongs to an open lobby")
			joined = true
		}
	}
	assert.True(t, joined)
}
