package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.SessionID]*domain.Session),
	}
}

func (s *SessionStore) CreateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists: %w", session.ID, domain.ErrInvalidState)
	}

	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *SessionStore) UpdateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; !exists {
		return fmt.Errorf("session %s: %w", session.ID, domain.ErrNotFound)
	}

	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}

	return cloneSession(sess), nil
}

// cloneSession keeps callers from mutating stored state through shared
// pointers.
func cloneSession(in *domain.Session) *domain.Session {
	out := *in
	return &out
}
