package store

import (
	"sync"

	"parley/internal/models"
)

type SessionState int

const (
	StateBootstrapping SessionState = iota
	StateUnauthenticated
	StateAuthenticating
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateBootstrapping:
		return "bootstrapping"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// Session holds the auth state machine:
// bootstrapping -> unauthenticated -> authenticating -> authenticated,
// with authenticated -> unauthenticated on logout or token invalidation.
// It is a state holder only; the transitions are driven by the bootstrap
// flow and the API client's 401 hook.
type Session struct {
	mu      sync.RWMutex
	state   SessionState
	user    models.User
	lastErr string
}

func NewSession() *Session {
	return &Session{state: StateBootstrapping}
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the signed-in profile snapshot; zero value when signed out.
func (s *Session) User() models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Err returns the last auth failure message, "" when none.
func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Session) SetAuthenticating() {
	s.mu.Lock()
	s.state = StateAuthenticating
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *Session) SetAuthenticated(user models.User) {
	s.mu.Lock()
	s.state = StateAuthenticated
	s.user = user
	s.lastErr = ""
	s.mu.Unlock()
}

// SetUnauthenticated resets the session, keeping the failure message for
// inline display on the login screen.
func (s *Session) SetUnauthenticated(reason string) {
	s.mu.Lock()
	s.state = StateUnauthenticated
	s.user = models.User{}
	s.lastErr = reason
	s.mu.Unlock()
}
