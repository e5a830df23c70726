package gateway

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// SessionCookie is the cookie carrying the session id.
const SessionCookie = "SESSION"

// SessionStore keeps sessions in memory. Sessions do not survive a restart;
// clients fall back to HTTP Basic and get a fresh cookie.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]string // session id -> username
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]string),
	}
}

// Start creates a session for the username and returns its id.
func (s *SessionStore) Start(username string) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = username
	s.mu.Unlock()
	return id
}

// Lookup resolves a session id to a username.
func (s *SessionStore) Lookup(id string) (string, bool) {
	s.mu.RLock()
	username, ok := s.sessions[id]
	s.mu.RUnlock()
	return username, ok
}

// End removes a session.
func (s *SessionStore) End(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// SetCookie writes the session cookie on the response.
func SetCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})
}
