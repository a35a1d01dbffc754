package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/api"
	"go.uber.org/zap"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Identity is the authenticated user as far as the client knows it.
type Identity struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Role         string `json:"role"`
	Username     string `json:"username"`
}

func (id Identity) Valid() bool { return id.Token != "" }

func (id Identity) IsAdmin() bool  { return id.Role == "ADMIN" }
func (id Identity) IsSeller() bool { return id.Role == "SELLER" || id.Role == "ADMIN" }

// Authenticator is the auth slice of the backend.
type Authenticator interface {
	Login(ctx context.Context, cred api.Credentials) (api.AuthResponse, error)
	Register(ctx context.Context, r api.Registration) (api.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (api.AuthResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

// Session holds one identity and its alert queue. It implements
// api.TokenSource so a client bound to it always sends the current token.
type Session struct {
	mu     sync.RWMutex
	id     Identity
	auth   Authenticator
	alerts *Alerts
	log    *zap.Logger
}

func New(auth Authenticator, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{auth: auth, alerts: NewAlerts(20, 30*time.Second), log: log}
}

// Restore seeds the session with a previously stored identity.
func (s *Session) Restore(id Identity) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Session) Token() string { return s.Identity().Token }

func (s *Session) Authenticated() bool { return s.Identity().Valid() }

func (s *Session) Alerts() *Alerts { return s.alerts }

func (s *Session) Login(ctx context.Context, cred api.Credentials) (Identity, error) {
	resp, err := s.auth.Login(ctx, cred)
	if err != nil {
		s.alerts.Error("Login failed")
		return Identity{}, fmt.Errorf("login: %w", err)
	}
	return s.adopt(resp), nil
}

func (s *Session) Register(ctx context.Context, r api.Registration) (Identity, error) {
	resp, err := s.auth.Register(ctx, r)
	if err != nil {
		s.alerts.Error("Registration failed")
		return Identity{}, fmt.Errorf("register: %w", err)
	}
	return s.adopt(resp), nil
}

// Refresh exchanges the refresh token for a new access token. A rejected
// refresh (401) clears the identity.
func (s *Session) Refresh(ctx context.Context) (Identity, error) {
	cur := s.Identity()
	if cur.RefreshToken == "" {
		return Identity{}, ErrNotAuthenticated
	}
	resp, err := s.auth.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		if api.IsUnauthorized(err) {
			s.clear()
			return Identity{}, ErrNotAuthenticated
		}
		return cur, fmt.Errorf("refresh: %w", err)
	}
	return s.adopt(resp), nil
}

// Logout always clears the local identity; a backend failure is only logged.
func (s *Session) Logout(ctx context.Context) error {
	cur := s.Identity()
	s.clear()
	if !cur.Valid() {
		return nil
	}
	if err := s.auth.Logout(ctx, cur.Token); err != nil {
		s.log.Warn("logout request failed", zap.String("username", cur.Username), zap.Error(err))
	}
	return nil
}

func (s *Session) adopt(resp api.AuthResponse) Identity {
	id := Identity{
		Token:        resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Role:         resp.Role,
		Username:     resp.Username,
	}
	s.mu.Lock()
	if id.Username == "" {
		id.Username = s.id.Username
	}
	if id.Role == "" {
		id.Role = s.id.Role
	}
	s.id = id
	s.mu.Unlock()
	return id
}

func (s *Session) clear() {
	s.mu.Lock()
	s.id = Identity{}
	s.mu.Unlock()
}
