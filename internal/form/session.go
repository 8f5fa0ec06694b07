package form

import (
	"sync"
	"sync/atomic"
	"time"

	"resumebuilder/internal/errors"
	"resumebuilder/internal/types"
)

// Session is one user's form together with the request state around it.
// While a request is in flight the session is busy and every trigger
// (preview, export, suggest, score, models) is rejected.
type Session struct {
	*Form

	ID        string
	CreatedAt time.Time

	busy       atomic.Bool
	lastAccess atomic.Int64

	mu        sync.RWMutex
	preview   *types.PreviewSnapshot
	score     *types.ScoreResult
	observers []func(busy bool)
}

// NewSession creates a session with an empty form
func NewSession(id string) *Session {
	s := &Session{
		Form:      New(),
		ID:        id,
		CreatedAt: time.Now(),
	}
	s.Touch()
	return s
}

// Busy reports whether a request is in flight
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// OnBusyChange registers fn to be called whenever the busy flag flips
func (s *Session) OnBusyChange(fn func(busy bool)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Session) notify(busy bool) {
	s.mu.RLock()
	observers := append([]func(bool){}, s.observers...)
	s.mu.RUnlock()

	for _, fn := range observers {
		fn(busy)
	}
}

// Begin marks the session busy and returns the function that clears it.
// The release function is safe to call more than once; only the first call
// clears the flag. Begin fails with a busy error if a request is already in
// flight.
func (s *Session) Begin() (release func(), err error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, errors.NewBusyError("a request is already in flight").
			WithContext("session_id", s.ID)
	}
	s.Touch()
	s.notify(true)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.busy.Store(false)
			s.Touch()
			s.notify(false)
		})
	}, nil
}

func (s *Session) checkIdle() error {
	if s.Busy() {
		return errors.NewBusyError("a request is already in flight").
			WithContext("session_id", s.ID)
	}
	return nil
}

// Preview takes a snapshot of the form and keeps it as the latest preview
func (s *Session) Preview() (types.PreviewSnapshot, error) {
	if err := s.checkIdle(); err != nil {
		return types.PreviewSnapshot{}, err
	}
	s.Touch()

	snap := s.Snapshot()
	s.mu.Lock()
	s.preview = &snap
	s.mu.Unlock()
	return snap, nil
}

// LastPreview returns the most recent preview snapshot
func (s *Session) LastPreview() (types.PreviewSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.preview == nil {
		return types.PreviewSnapshot{}, false
	}
	return *s.preview, true
}

// SetScore replaces the latest score result. A nil result discards it.
func (s *Session) SetScore(result *types.ScoreResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result == nil {
		s.score = nil
		return
	}
	r := *result
	s.score = &r
}

// LastScore returns the latest score result
func (s *Session) LastScore() (types.ScoreResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.score == nil {
		return types.ScoreResult{}, false
	}
	return *s.score, true
}

// Touch records activity on the session
func (s *Session) Touch() {
	s.lastAccess.Store(time.Now().UnixNano())
}

// LastAccess returns the time of the last recorded activity
func (s *Session) LastAccess() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}
