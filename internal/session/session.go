// Package session holds the identity of whoever is logged in to this process.
//
// ONE PROCESS, ONE SESSION:
// Weatherly is a desktop app. There is exactly one person at the keyboard, so
// there is exactly one session: either nobody is logged in, or one account is.
// Logging in replaces whatever was there; logging out clears it.
//
// The session lives in memory only. Restarting the app always starts logged
// out.
//
// CONCURRENCY:
// The local UI server reads the session from many request goroutines while a
// login or logout writes it, so every access goes through a sync.RWMutex.
package session

import (
	"sync"

	"github.com/sakif/weatherly/internal/model"
)

// Identity is who is logged in.
type Identity struct {
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == model.RoleAdmin
}

// Session is the process-wide login state. The zero value is logged out and
// ready to use.
type Session struct {
	mu      sync.RWMutex
	current *Identity
}

// New returns a logged-out session.
func New() *Session {
	return &Session{}
}

// Begin makes id the logged-in identity, replacing any previous one.
func (s *Session) Begin(id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &id
}

// End logs out and returns who was logged in, if anyone.
func (s *Session) End() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Identity{}, false
	}
	prev := *s.current
	s.current = nil
	return prev, true
}

// Current returns the logged-in identity. ok is false when nobody is logged in.
func (s *Session) Current() (id Identity, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return Identity{}, false
	}
	return *s.current, true
}
