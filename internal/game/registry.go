package game

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Store is the persistence collaborator. The registry treats it as
// eventually consistent: the in-memory session is authoritative between
// saves, and a failed save never rolls back a mutation.
type Store interface {
	Save(ctx context.Context, state SessionState) error
	Load(ctx context.Context, code string) (*SessionState, error)
	Remove(ctx context.Context, code string) error
	RemoveInactiveSessions(ctx context.Context, olderThan time.Time) ([]string, error)
}

// NopStore is used when no database is configured; the server then runs
// purely in memory.
type NopStore struct{}

func (NopStore) Save(context.Context, SessionState) error             { return nil }
func (NopStore) Load(context.Context, string) (*SessionState, error)  { return nil, nil }
func (NopStore) Remove(context.Context, string) error                 { return nil }
func (NopStore) RemoveInactiveSessions(context.Context, time.Time) ([]string, error) {
	return nil, nil
}

// Registry is the keyed lookup of live sessions. It replaces the ambient
// room list with an explicit service: every add, remove and lookup goes
// through it, and it is safe under concurrent timer callbacks and inbound
// commands.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*GameSession

	store   Store
	timings Timings
	log     *logrus.Entry

	// OnRestore runs for sessions revived from the store, before they are
	// published, so the transport can rebind its broadcast hooks.
	OnRestore func(*GameSession)
}

// NewRegistry creates an empty registry over the given store.
func NewRegistry(store Store, timings Timings) *Registry {
	return &Registry{
		sessions: make(map[string]*GameSession),
		store:    store,
		timings:  timings,
		log:      logrus.WithField("component", "registry"),
	}
}

// Add registers a session and wires its persistence and teardown hooks.
func (r *Registry) Add(s *GameSession) {
	s.PersistFn = r.persist
	s.OnTeardown = r.removeCode
	r.mu.Lock()
	r.sessions[s.Code] = s
	r.mu.Unlock()
}

// Get returns the live session for a join code, reviving it from the store
// on a map miss.
func (r *Registry) Get(code string) (*GameSession, error) {
	r.mu.RLock()
	s, ok := r.sessions[code]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}
	return r.load(code)
}

// load is the load-through path for sessions that survived a restart only in
// the store. Players come back connection-lost until their sockets reattach.
func (r *Registry) load(code string) (*GameSession, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := r.store.Load(ctx, code)
	if err != nil {
		r.log.WithError(err).WithField("room", code).Error("failed loading stored session")
		return nil, ErrNotFound
	}
	if state == nil {
		return nil, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[code]; ok {
		// A concurrent lookup revived it first.
		return s, nil
	}
	s := Restore(*state, r.timings, NewTimerScheduler())
	if r.OnRestore != nil {
		r.OnRestore(s)
	}
	s.PersistFn = r.persist
	s.OnTeardown = r.removeCode
	r.sessions[code] = s
	r.log.WithField("room", code).Info("session revived from store")
	return s, nil
}

// All returns the current sessions, for matchmaking scans.
func (r *Registry) All() []*GameSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*GameSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// removeCode is the session teardown hook. The store removal is
// fire-and-forget like every other persistence call.
func (r *Registry) removeCode(code string) {
	r.mu.Lock()
	delete(r.sessions, code)
	r.mu.Unlock()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.store.Remove(ctx, code); err != nil {
			r.log.WithError(err).WithField("room", code).Error("failed removing stored session")
		}
	}()
}

// persist writes the session state out-of-band. Persistence lag never
// blocks the session; failures are logged and the next commit retries.
func (r *Registry) persist(s *GameSession) {
	state := s.State()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.store.Save(ctx, state); err != nil {
			r.log.WithError(err).WithField("room", state.Code).Error("failed saving session")
		}
	}()
}

// Sweep tears down sessions idle beyond maxIdle and clears matching rows
// from the store. Meant to run periodically from a background goroutine.
func (r *Registry) Sweep(ctx context.Context, maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	for _, s := range r.All() {
		s.Mu.Lock()
		if s.UpdatedAt.Before(cutoff) {
			s.log.Info("sweeping inactive session")
			s.teardown()
		}
		s.Mu.Unlock()
	}

	codes, err := r.store.RemoveInactiveSessions(ctx, cutoff)
	if err != nil {
		r.log.WithError(err).Error("failed sweeping stored sessions")
		return
	}
	if len(codes) > 0 {
		r.log.WithField("count", len(codes)).Info("swept stored sessions")
	}
}

// RunSweeper blocks, sweeping at the given interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx, maxIdle)
		}
	}
}
