package form

import (
	"sync"
	"time"

	"resumebuilder/internal/errors"

	"github.com/google/uuid"
)

// Store keeps the sessions of concurrent users in memory and evicts idle ones.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	done     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
}

// NewStore creates a store. Sessions idle for longer than ttl are removed
// every cleanupInterval. A zero ttl disables eviction.
func NewStore(ttl, cleanupInterval time.Duration, logger *errors.Logger) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
		logger:   logger,
	}

	if ttl > 0 && cleanupInterval > 0 {
		go s.cleanupRoutine(cleanupInterval)
	}
	return s
}

// Create registers a new empty session
func (s *Store) Create() *Session {
	sess := NewSession(uuid.NewString())

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Debug("Session created", "session_id", sess.ID)
	}
	return sess
}

// Get looks up a session and records activity on it
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()

	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrCodeSessionNotFound, "session not found").
			WithContext("session_id", id)
	}
	sess.Touch()
	return sess, nil
}

// Delete removes a session. It reports whether the session existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// GetStats returns current session statistics
func (s *Store) GetStats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	busy := 0
	for _, sess := range s.sessions {
		if sess.Busy() {
			busy++
		}
	}
	return map[string]any{
		"active_sessions": len(s.sessions),
		"busy_sessions":   busy,
		"ttl_seconds":     s.ttl.Seconds(),
	}
}

func (s *Store) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.done:
			return
		}
	}
}

// cleanup removes idle sessions. A busy session is never evicted.
func (s *Store) cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.Busy() {
			continue
		}
		if now.Sub(sess.LastAccess()) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}

	if s.logger != nil && removed > 0 {
		s.logger.Debug("Session cleanup completed",
			"removed_sessions", removed,
			"remaining_sessions", len(s.sessions))
	}
	return removed
}

// Close stops the cleanup goroutine
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.done) })
}
