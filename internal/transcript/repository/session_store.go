package repository

import (
	"context"
	"sync"
	"time"

	"hyperagent/internal/transcript/domain"
)

// SessionStore keeps review wizard sessions until they expire
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error
	// Get returns (nil, nil) for unknown or expired sessions
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Update runs fn on the stored session under the store's lock and saves
	// the result only when fn succeeds
	Update(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error)
}

// MemorySessionStore is an in-process SessionStore. Expired sessions are
// dropped lazily on access.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*domain.Session), now: time.Now}
}

func (s *MemorySessionStore) Save(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.liveLocked(id)
	if session == nil {
		return nil, nil
	}
	return session.Clone(), nil
}

func (s *MemorySessionStore) Update(_ context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.liveLocked(id)
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	working := session.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.sessions[id] = working
	return working.Clone(), nil
}

func (s *MemorySessionStore) liveLocked(id string) *domain.Session {
	session, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, id)
		return nil
	}
	return session
}

func (s *MemorySessionStore) purgeLocked() {
	now := s.now()
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}
