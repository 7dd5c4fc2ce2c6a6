package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tleroux/skyjo-server/internal/models"
)

// recordingStore captures persistence traffic for assertions.
type recordingStore struct {
	mu        sync.Mutex
	saves     []SessionState
	removed   []string
	stale     []string
	loadState *SessionState
}

func (r *recordingStore) Save(_ context.Context, state SessionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, state)
	return nil
}

func (r *recordingStore) Load(_ context.Context, code string) (*SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadState != nil && r.loadState.Code == code {
		return r.loadState, nil
	}
	return nil, nil
}

func (r *recordingStore) Remove(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, code)
	return nil
}

func (r *recordingStore) RemoveInactiveSessions(context.Context, time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale, nil
}

func (r *recordingStore) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func (r *recordingStore) lastSave() (SessionState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saves) == 0 {
		return SessionState{}, false
	}
	return r.saves[len(r.saves)-1], true
}

func (r *recordingStore) removedCodes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.removed...)
}

func newTestRegistrySession(t *testing.T, reg *Registry) (*GameSession, *models.Player) {
	t.Helper()
	s := NewGameSession(models.DefaultSettings(), testTimings(), newManualScheduler())
	s.EmitToRoomFn = func(string, interface{}) {}
	s.EmitToPlayerFn = newMockEmitter().playerFn
	reg.Add(s)

	s.Mu.Lock()
	defer s.Mu.Unlock()
	p := models.NewPlayer("A", "", "")
	require.NoError(t, s.AddPlayer(p))
	return s, p
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never reached")
}

func TestRegistryAddGetLen(t *testing.T) {
	reg := NewRegistry(NopStore{}, testTimings())
	s, _ := newTestRegistrySession(t, reg)

	got, err := reg.Get(s.Code)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Get("ZZZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommitPersistsDeepState(t *testing.T) {
	store := &recordingStore{}
	reg := NewRegistry(store, testTimings())
	s, p := newTestRegistrySession(t, reg)

	s.Mu.Lock()
	s.commit()
	s.Mu.Unlock()

	waitFor(t, func() bool { return store.saveCount() > 0 })
	state, ok := store.lastSave()
	require.True(t, ok)
	assert.Equal(t, s.Code, state.Code)
	require.Len(t, state.Players, 1)
	assert.Equal(t, p.ID, state.Players[0].ID)

	// The persisted copy must not alias live state.
	s.Mu.Lock()
	s.Players[0].Name = "mutated"
	s.Mu.Unlock()
	assert.Equal(t, "A", state.Players[0].Name)
}

func TestTeardownRemovesFromRegistryAndStore(t *testing.T) {
	store := &recordingStore{}
	reg := NewRegistry(store, testTimings())
	s, _ := newTestRegistrySession(t, reg)
	code := s.Code

	s.Mu.Lock()
	s.teardown()
	s.Mu.Unlock()

	_, err := reg.Get(code)
	assert.ErrorIs(t, err, ErrNotFound)
	waitFor(t, func() bool { return len(store.removedCodes()) > 0 })
	assert.Equal(t, []string{code}, store.removedCodes())
}

func TestSweepTearsDownIdleSessions(t *testing.T) {
	store := &recordingStore{stale: []string{"OLD001"}}
	reg := NewRegistry(store, testTimings())
	idle, _ := newTestRegistrySession(t, reg)
	fresh, _ := newTestRegistrySession(t, reg)

	idle.Mu.Lock()
	idle.UpdatedAt = time.Now().Add(-48 * time.Hour)
	idle.Mu.Unlock()
	fresh.Mu.Lock()
	fresh.UpdatedAt = time.Now()
	fresh.Mu.Unlock()

	reg.Sweep(context.Background(), 24*time.Hour)

	_, err := reg.Get(idle.Code)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reg.Get(fresh.Code)
	assert.NoError(t, err, "active sessions survive the sweep")
}

func TestGetRevivesStoredSession(t *testing.T) {
	seed := NewRegistry(NopStore{}, testTimings())
	live, p := newTestRegistrySession(t, seed)
	live.Mu.Lock()
	state := live.State()
	live.Mu.Unlock()

	store := &recordingStore{loadState: &state}
	reg := NewRegistry(store, testTimings())
	rewired := 0
	reg.OnRestore = func(*GameSession) { rewired++ }

	got, err := reg.Get(state.Code)
	require.NoError(t, err)
	assert.Equal(t, 1, rewired, "transport hooks rebound on revival")
	assert.Equal(t, state.Code, got.Code)
	require.Len(t, got.Players, 1)
	assert.Equal(t, p.ID, got.Players[0].ID)
	assert.Equal(t, models.ConnectionStatusConnectionLost, got.Players[0].Connection)
	assert.NotNil(t, got.PersistFn, "revived session persists like any other")

	// A second lookup hits the map, not the store.
	again, err := reg.Get(state.Code)
	require.NoError(t, err)
	assert.Same(t, got, again)
	assert.Equal(t, 1, rewired)
}

func TestRestoreMarksPlayersConnectionLost(t *testing.T) {
	reg := NewRegistry(NopStore{}, testTimings())
	s, p := newTestRegistrySession(t, reg)

	s.Mu.Lock()
	state := s.State()
	s.Mu.Unlock()

	restored := Restore(state, testTimings(), newManualScheduler())
	require.Len(t, restored.Players, 1)
	assert.Equal(t, p.ID, restored.Players[0].ID)
	assert.Equal(t, models.ConnectionStatusConnectionLost, restored.Players[0].Connection)
	assert.Equal(t, s.Code, restored.Code)
}
