package resilience

import (
	"sync"
	"time"

	"github.com/autoimport-pro/server/internal/agent/model"
)

const DefaultFallbackThreshold = 3

// FailureStats is a snapshot of a tracker.
type FailureStats struct {
	TotalFailures     int       `json:"total_errors"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
	LastFailure       time.Time `json:"last_error_time"`
}

// FailureTracker counts oracle failures. A streak at the threshold puts the
// owner into fallback mode until the next success.
type FailureTracker struct {
	mu        sync.Mutex
	threshold int
	total     int
	streak    int
	last      time.Time
	now       func() time.Time
}

func NewFailureTracker(threshold int) *FailureTracker {
	if threshold <= 0 {
		threshold = DefaultFallbackThreshold
	}
	return &FailureTracker{threshold: threshold, now: time.Now}
}

func (t *FailureTracker) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	t.streak++
	t.last = t.now()
}

func (t *FailureTracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streak = 0
}

func (t *FailureTracker) ShouldUseFallback() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streak >= t.threshold
}

func (t *FailureTracker) Stats() FailureStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return FailureStats{TotalFailures: t.total, ConsecutiveErrors: t.streak, LastFailure: t.last}
}

func (t *FailureTracker) idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streak == 0
}

// TrackerSet hands out failure trackers by session, or one shared tracker
// when scoped to the process.
type TrackerSet struct {
	scope     string
	threshold int

	mu       sync.Mutex
	shared   *FailureTracker
	sessions map[string]*sessionTracker
}

// sessionTracker counts the turns currently holding a session's tracker.
type sessionTracker struct {
	tracker *FailureTracker
	refs    int
}

// NewTrackerSet creates a set for scope (model.ScopeSession or model.ScopeProcess).
// Unknown scopes behave as model.ScopeSession.
func NewTrackerSet(scope string, threshold int) *TrackerSet {
	if scope != model.ScopeProcess {
		scope = model.ScopeSession
	}
	return &TrackerSet{
		scope:     scope,
		threshold: threshold,
		shared:    NewFailureTracker(threshold),
		sessions:  make(map[string]*sessionTracker),
	}
}

func (s *TrackerSet) Scope() string { return s.scope }

// For returns the tracker responsible for sessionID.
func (s *TrackerSet) For(sessionID string) *FailureTracker {
	if s.scope == model.ScopeProcess {
		return s.shared
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry(sessionID).tracker
}

// Acquire marks a turn on sessionID as running. Every Acquire must be paired
// with a Release.
func (s *TrackerSet) Acquire(sessionID string) *FailureTracker {
	if s.scope == model.ScopeProcess {
		return s.shared
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(sessionID)
	e.refs++
	return e.tracker
}

// Release ends a turn on sessionID. The tracker is dropped once no turn holds
// it and it has no streak, keeping the map bounded.
func (s *TrackerSet) Release(sessionID string) {
	if s.scope == model.ScopeProcess {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	if e.refs > 0 {
		e.refs--
	}
	if e.refs == 0 && e.tracker.idle() {
		delete(s.sessions, sessionID)
	}
}

func (s *TrackerSet) entry(sessionID string) *sessionTracker {
	e, ok := s.sessions[sessionID]
	if !ok {
		e = &sessionTracker{tracker: NewFailureTracker(s.threshold)}
		s.sessions[sessionID] = e
	}
	return e
}

func (s *TrackerSet) live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
