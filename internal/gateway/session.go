package gateway

import (
	"sync"

	"estimator/internal/core"
)

// Session holds the credential attached to outgoing gateway calls. It is
// created by the caller and handed to the transport on construction.
type Session struct {
	mu    sync.RWMutex
	token string
	user  core.User
}

// NewSession returns an unauthenticated session.
func NewSession() *Session {
	return &Session{}
}

// SetCredential stores the token and user returned by login or register.
func (s *Session) SetCredential(token string, user core.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

// ClearCredential drops the stored token and user.
func (s *Session) ClearCredential() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = core.User{}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() core.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}
