package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Factory builds the session for a key seen for the first time.
type Factory func() (*Session, error)

type StoreOptions struct {
	Factory Factory
}

// Store keeps one Session per key (a chat user, an HTTP client id) and
// serializes calls on the same key.
type Store[K comparable] struct {
	mu       sync.Mutex
	sessions map[K]*entry
	factory  Factory
}

type entry struct {
	mu           sync.Mutex
	session      *Session
	lastActivity time.Time
	// removed is set under mu when Prune drops the entry from the map.
	removed bool
}

func NewStore[K comparable](opts StoreOptions) *Store[K] {
	return &Store[K]{
		sessions: make(map[K]*entry),
		factory:  opts.Factory,
	}
}

// Do runs fn with the key's session while holding the key's lock.
func (s *Store[K]) Do(key K, fn func(*Session) error) error {
	e, err := s.lock(key)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	e.lastActivity = time.Now()
	return fn(e.session)
}

// Peek runs fn with the key's session, if there is one, and reports whether
// there was. It never creates a session.
func (s *Store[K]) Peek(key K, fn func(*Session)) bool {
	s.mu.Lock()
	e, ok := s.sessions[key]
	s.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return false
	}
	fn(e.session)
	return true
}

// lock returns the key's live entry with its lock held. An entry pruned
// between the lookup and the lock is skipped.
func (s *Store[K]) lock(key K) (*entry, error) {
	for {
		e, err := s.getOrCreate(key)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		if !e.removed {
			return e, nil
		}
		e.mu.Unlock()
	}
}

// Clear empties the key's history. Unknown keys are ignored.
func (s *Store[K]) Clear(key K) {
	s.mu.Lock()
	e, ok := s.sessions[key]
	s.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.session.ClearHistory()
	e.lastActivity = time.Now()
}

func (s *Store[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Prune drops sessions idle for longer than maxIdle and reports how many
// went away.
func (s *Store[K]) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if e.lastActivity.Before(cutoff) {
			s.dropLocked(key, e)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// PruneLoop calls Prune every min(maxIdle, 1h) until ctx is done. A
// non-positive maxIdle disables pruning.
func (s *Store[K]) PruneLoop(ctx context.Context, maxIdle time.Duration, logger *slog.Logger) {
	if maxIdle <= 0 {
		return
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ticker := time.NewTicker(min(maxIdle, time.Hour))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Prune(maxIdle); n > 0 {
				logger.Info("idle sessions pruned", "count", n, "left", s.Len())
			}
		}
	}
}

// dropLocked removes e from the map. s.mu and e.mu must be held.
func (s *Store[K]) dropLocked(key K, e *entry) {
	delete(s.sessions, key)
	e.removed = true
}

func (s *Store[K]) getOrCreate(key K) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[key]; ok {
		return e, nil
	}

	sess, err := s.factory()
	if err != nil {
		return nil, err
	}
	e := &entry{session: sess, lastActivity: time.Now()}
	s.sessions[key] = e
	return e, nil
}
