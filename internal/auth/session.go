package auth

import (
	"context"
	"sync"

	"github.com/fieldops/nfotrack/pkg/models"
)

// Session holds the currently authenticated identity for the lifetime of
// the process. Single-session: a second login replaces, it does not stack.
type Session struct {
	verifier *Verifier

	mu      sync.RWMutex
	current *models.Identity
}

func NewSession(verifier *Verifier) *Session {
	return &Session{verifier: verifier}
}

// Login verifies the credentials and, only on success, replaces the current
// identity atomically. On failure the prior state is left untouched and the
// error propagates to the caller.
func (s *Session) Login(ctx context.Context, role models.Role, username, password string) (*models.Identity, error) {
	id, err := s.verifier.Verify(ctx, role, username, password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = id
	s.mu.Unlock()

	return id, nil
}

// Logout clears the identity unconditionally. It performs no backend write;
// callers needing a final presence reconciliation must run it before this,
// since the identity is required to address the presence row.
func (s *Session) Logout() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Current returns a copy of the active identity, or nil when logged out.
func (s *Session) Current() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	id := *s.current
	return &id
}
