package game

import (
	"sync"
	"time"
)

// Scheduler owns the cancellable timers a session needs: reconnection grace
// periods, kick-vote expiries and the round-restart delay. Entities refer to
// their timer by key instead of holding a *time.Timer, so cancellation lives
// in one place and tests can substitute a manual implementation.
type Scheduler interface {
	// Schedule arms fn to run after d. A previous timer under the same key
	// is cancelled first.
	Schedule(key string, d time.Duration, fn func())
	// Cancel stops the timer under key. It reports whether a timer was
	// armed. A callback that already started running is not interrupted;
	// callbacks must re-check state under the session lock.
	Cancel(key string) bool
	// CancelAll stops every armed timer. Used on session teardown.
	CancelAll()
}

// TimerScheduler is the production Scheduler backed by time.AfterFunc.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimerScheduler returns an empty wall-clock scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[string]*time.Timer)}
}

func (ts *TimerScheduler) Schedule(key string, d time.Duration, fn func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t, ok := ts.timers[key]; ok {
		t.Stop()
	}
	ts.timers[key] = time.AfterFunc(d, func() {
		ts.mu.Lock()
		delete(ts.timers, key)
		ts.mu.Unlock()
		fn()
	})
}

func (ts *TimerScheduler) Cancel(key string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.timers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(ts.timers, key)
	return ok
}

func (ts *TimerScheduler) CancelAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for key, t := range ts.timers {
		t.Stop()
		delete(ts.timers, key)
	}
}

// Timer keys. One grace timer per player, one expiry per vote target, one
// restart timer per session.
func graceTimerKey(playerID string) string { return "grace:" + playerID }
func voteTimerKey(targetID string) string  { return "vote:" + targetID }

const roundRestartTimerKey = "round-restart"
