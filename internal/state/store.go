// Package state tracks the agent's view of the analysis engine lifecycle
// and fans snapshot changes out to subscribers.
package state

import (
	"log/slog"
	"sync"
)

type Phase int

const (
	PhaseNotRunning Phase = iota
	PhaseInitializing
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseNotRunning:
		return "not-running"
	case PhaseInitializing:
		return "initializing"
	case PhaseRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the store at one point in time.
type Snapshot struct {
	Phase           Phase
	ActiveSessionID string
	ActiveToken     string
}

// Store serializes engine lifecycle transitions and notifies subscribers
// synchronously after each change.
type Store struct {
	mu          sync.Mutex
	snapshot    Snapshot
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

func NewStore() *Store {
	return &Store{
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn for future snapshot changes and returns an
// unsubscribe function. fn is not called for the current state.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Store) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Start records that an engine launch was requested. If an engine is
// already initializing or running the call is a logged no-op.
func (s *Store) Start(sessionID, token string) {
	s.mu.Lock()
	if s.snapshot.Phase != PhaseNotRunning {
		phase := s.snapshot.Phase
		s.mu.Unlock()
		slog.Warn("engine start ignored, engine already active",
			"phase", phase.String(),
			"session_id", sessionID)
		return
	}

	s.snapshot = Snapshot{
		Phase:           PhaseInitializing,
		ActiveSessionID: sessionID,
		ActiveToken:     token,
	}
	s.notifyLocked()
}

// Stop clears the active engine association. Calling it with no engine
// active is a logged no-op.
func (s *Store) Stop() {
	s.mu.Lock()
	if s.snapshot.Phase == PhaseNotRunning {
		s.mu.Unlock()
		slog.Info("engine stop ignored, no engine active")
		return
	}

	s.snapshot = Snapshot{Phase: PhaseNotRunning}
	s.notifyLocked()
}

// HandleReady marks the initializing engine as running.
func (s *Store) HandleReady() {
	s.mu.Lock()
	if s.snapshot.Phase != PhaseInitializing {
		s.mu.Unlock()
		return
	}

	s.snapshot.Phase = PhaseRunning
	s.notifyLocked()
}

// HandleFailed clears the store after a startup failure.
func (s *Store) HandleFailed() {
	s.mu.Lock()
	if s.snapshot.Phase == PhaseNotRunning {
		s.mu.Unlock()
		return
	}

	s.snapshot = Snapshot{Phase: PhaseNotRunning}
	s.notifyLocked()
}

// HandleStopped clears the store after the engine process exits.
func (s *Store) HandleStopped() {
	s.mu.Lock()
	if s.snapshot.Phase == PhaseNotRunning {
		s.mu.Unlock()
		return
	}

	s.snapshot = Snapshot{Phase: PhaseNotRunning}
	s.notifyLocked()
}

// notifyLocked snapshots the subscriber list under the lock and invokes
// callbacks after releasing it, so subscribers can call back into the store.
func (s *Store) notifyLocked() {
	snapshot := s.snapshot
	fns := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}
