package memory

import (
	"sync"

	"idiom-battle-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository,
// keyed by user id: one live battle per player.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.BattleSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.BattleSession),
	}
}

func (s *SessionStore) Put(userID string, session *app.BattleSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = session
}

func (s *SessionStore) Get(userID string) (*app.BattleSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

func (s *SessionStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
