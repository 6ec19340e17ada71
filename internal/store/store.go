// Package store keeps conversation state per user identity. The dispatcher
// never touches a store; transports load a State, run a transition and write
// the result back through Update.
package store

import (
	"sync"

	"growth-mcp/internal/session"
)

// Store maps a user id to that user's conversation state.
type Store interface {
	// Get returns a copy of the user's state, or an empty state.
	Get(userID string) session.State
	// Update serialises fn against all other updates for userID. fn receives
	// the current state and returns the next one, or remove=true to drop it.
	Update(userID string, fn func(session.State) (next session.State, remove bool))
	// Len reports how many users have stored state.
	Len() int
}

// MemoryStore is a process-local Store. Updates for the same user run one at
// a time; updates for different users proceed in parallel.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]session.State
	locks    map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]session.State),
		locks:    make(map[string]*userLock),
	}
}

func (s *MemoryStore) Get(userID string) session.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[userID]
	if !ok {
		return session.Empty()
	}
	return st.Clone()
}

func (s *MemoryStore) Update(userID string, fn func(session.State) (session.State, bool)) {
	l := s.acquire(userID)
	defer s.release(userID, l)

	next, remove := fn(s.Get(userID))

	s.mu.Lock()
	defer s.mu.Unlock()
	if remove {
		delete(s.sessions, userID)
		return
	}
	s.sessions[userID] = next.Clone()
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// acquire returns the user's lock held, creating it on first use.
func (s *MemoryStore) acquire(userID string) *userLock {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return l
}

func (s *MemoryStore) release(userID string, l *userLock) {
	l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, userID)
	}
}
