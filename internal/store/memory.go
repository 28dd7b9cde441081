package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/brightside/internal/dashboard"
)

var (
	// ErrNotFound is returned when no session exists for an id.
	ErrNotFound = errors.New("session not found")
	// ErrFull is returned when the store holds its maximum number of sessions.
	ErrFull = errors.New("too many active sessions")
)

type entry struct {
	shell    *dashboard.Shell
	lastSeen time.Time
}

// SessionStore is a concurrency-safe in-memory registry of dashboard shells.
// It only holds per-visitor state; weather data itself lives in the shells and
// is replaced on every fetch.
type SessionStore struct {
	mu sync.RWMutex

	// key: session id
	data map[string]*entry

	maxSessions int           // 0 = unlimited
	maxIdle     time.Duration // 0 = never evicted

	now func() time.Time
}

// NewSessionStore creates a store with optional limits.
func NewSessionStore(maxSessions int, maxIdle time.Duration) *SessionStore {
	return &SessionStore{
		data:        make(map[string]*entry),
		maxSessions: maxSessions,
		maxIdle:     maxIdle,
		now:         time.Now,
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Save registers a shell under its id. Idle sessions are evicted first when the store is full.
func (s *SessionStore) Save(sh *dashboard.Shell) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[sh.ID()]; !ok && s.maxSessions > 0 && len(s.data) >= s.maxSessions {
		s.evictLocked()
		if len(s.data) >= s.maxSessions {
			return ErrFull
		}
	}
	s.data[sh.ID()] = &entry{shell: sh, lastSeen: s.now()}
	return nil
}

// Get returns the shell for id and marks the session as active.
func (s *SessionStore) Get(id string) (*dashboard.Shell, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = s.now()
	return e.shell, nil
}

// Delete drops a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
}

// Len returns the number of held sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Shells returns the held shells in no particular order.
func (s *SessionStore) Shells() []*dashboard.Shell {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*dashboard.Shell, 0, len(s.data))
	for _, e := range s.data {
		out = append(out, e.shell)
	}
	return out
}

// EvictIdle removes sessions not seen within maxIdle and returns how many were dropped.
func (s *SessionStore) EvictIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictLocked()
}

func (s *SessionStore) evictLocked() int {
	if s.maxIdle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.maxIdle)
	n := 0
	for id, e := range s.data {
		if e.lastSeen.Before(cutoff) {
			delete(s.data, id)
			n++
		}
	}
	return n
}
