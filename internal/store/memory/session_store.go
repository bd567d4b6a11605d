package memory

import (
	"context"
	"sync"

	"github.com/wolfeidau/gazerecorder/internal/models"
	"github.com/wolfeidau/gazerecorder/internal/store"
)

// SessionStore implements store.SessionStore using in-memory storage.
// Data is lost on restart; it backs tests and the CLI's "memory" driver.
type SessionStore struct {
	mu sync.RWMutex

	sessions map[string]*models.Session // id -> Session
	closed   bool
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.Session),
	}
}

// WriteOne upserts a session.
func (s *SessionStore) WriteOne(ctx context.Context, session *models.Session) error {
	return s.WriteMany(ctx, []*models.Session{session})
}

// WriteMany upserts sessions. Nothing is written if any session is invalid.
func (s *SessionStore) WriteMany(ctx context.Context, sessions []*models.Session) error {
	for _, session := range sessions {
		if err := store.ValidateSession(session); err != nil {
			return store.NewPersistenceError(store.OpWrite, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.NewPersistenceError(store.OpWrite, store.ErrStoreClosed)
	}

	// Clone to avoid external modifications
	for _, session := range sessions {
		s.sessions[session.ID] = session.Clone()
	}
	return nil
}

// FetchOne returns a copy of the session with the given id.
func (s *SessionStore) FetchOne(ctx context.Context, id string) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false
	}

	session, exists := s.sessions[id]
	if !exists {
		return nil, false
	}
	return session.Clone(), true
}

// FetchAll returns copies of every session ordered by begin time.
func (s *SessionStore) FetchAll(ctx context.Context) ([]*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false
	}

	sessions := make([]*models.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session.Clone())
	}
	models.SortSessions(sessions)

	return sessions, true
}

// DeleteOne removes a session. Removing an absent session is not an error.
func (s *SessionStore) DeleteOne(ctx context.Context, session *models.Session) error {
	if err := store.ValidateSession(session); err != nil {
		return store.NewPersistenceError(store.OpWrite, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.NewPersistenceError(store.OpWrite, store.ErrStoreClosed)
	}

	delete(s.sessions, session.ID)
	return nil
}

// DeleteAll removes every session.
func (s *SessionStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.NewPersistenceError(store.OpWrite, store.ErrStoreClosed)
	}

	clear(s.sessions)
	return nil
}

// Erase discards the store. With no schema to drop it is DeleteAll.
func (s *SessionStore) Erase(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.NewPersistenceError(store.OpSchema, store.ErrStoreClosed)
	}

	s.sessions = make(map[string]*models.Session)
	return nil
}

// Close marks the store closed; later operations fail.
func (s *SessionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.sessions = nil
	return nil
}
