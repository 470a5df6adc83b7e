package memory

import (
	"sync"
	"time"

	"ipormac/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

// NewSessionStore creates sessions whose questions expire after ttl (0 keeps them forever).
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

// WithSession runs fn on the site's session, creating it if needed. The store
// lock is held for the duration so DeleteIfEmpty cannot drop the session
// before fn's additions land.
func (s *SessionStore) WithSession(siteKey string, fn func(*app.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[siteKey]
	if !ok {
		session = app.NewSession(siteKey, s.ttl)
		s.sessions[siteKey] = session
	}
	fn(session)
}

func (s *SessionStore) Get(siteKey string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[siteKey]
	return session, ok
}

func (s *SessionStore) DeleteIfEmpty(siteKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[siteKey]
	if !ok {
		return
	}
	if session.IsEmpty() {
		delete(s.sessions, siteKey)
	}
}
