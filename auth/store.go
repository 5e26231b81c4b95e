// Package auth holds the client-side authentication state: the current
// session (token + user), the login/register/logout operations, and the
// remember-me persistence policy over the credential vault.
package auth

import (
	"context"
	"sync"

	"github.com/lumiere-shop/storefront/api"
	"github.com/lumiere-shop/storefront/core"
)

const (
	loginPath    = "/api/auth/login"
	registerPath = "/api/auth/register"
)

// Snapshot is a point-in-time copy of the auth state
type Snapshot struct {
	User      *User
	Token     string
	IsLoading bool
	Err       string
}

// Store holds the current session and drives the auth endpoints.
// Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	client *api.Client
	vault  *Vault
	logger core.Logger

	user      *User
	token     string
	isLoading bool
	err       string
}

// NewStore creates an auth store. Call Restore to rehydrate a persisted
// session before issuing authenticated requests.
func NewStore(client *api.Client, vault *Vault, logger core.Logger) *Store {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Store{
		client: client,
		vault:  vault,
		logger: logger,
	}
}

// Restore loads persisted credentials into memory (durable scope first,
// session scope fallback). A missing session is not an error.
func (s *Store) Restore(ctx context.Context) error {
	creds, found, err := s.vault.Load(ctx)
	if err != nil {
		return core.NewStorefrontError("auth.Restore", "auth", err)
	}
	if !found {
		return nil
	}

	s.mu.Lock()
	s.token = creds.Token
	user := creds.User
	s.user = &user
	s.mu.Unlock()

	s.logger.Info("Session restored", map[string]interface{}{
		"operation": "auth_restore",
		"email":     creds.User.Email,
	})
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates against the backend. On success the credentials are
// persisted per the rememberMe policy and become the active session.
func (s *Store) Login(ctx context.Context, email, password string, rememberMe bool) (Credentials, error) {
	return s.exchange(ctx, loginPath, loginRequest{Email: email, Password: password}, rememberMe)
}

// Register creates an account and logs the new user in
func (s *Store) Register(ctx context.Context, name, email, password string, rememberMe bool) (Credentials, error) {
	return s.exchange(ctx, registerPath, registerRequest{Name: name, Email: email, Password: password}, rememberMe)
}

func (s *Store) exchange(ctx context.Context, path string, body interface{}, rememberMe bool) (Credentials, error) {
	s.mu.Lock()
	s.isLoading = true
	s.err = ""
	s.mu.Unlock()

	var creds Credentials
	err := s.client.Post(ctx, api.RequestContext{}, path, body, &creds)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false

	if err != nil {
		s.err = api.ErrorMessage(err)
		s.logger.Warn("Auth exchange failed", map[string]interface{}{
			"operation": "auth_exchange_error",
			"path":      path,
			"error":     s.err,
		})
		return Credentials{}, core.NewStorefrontError("auth.exchange", "auth", err)
	}

	if saveErr := s.vault.Save(ctx, creds, rememberMe); saveErr != nil {
		// The session is valid even if persistence failed; keep it in memory
		s.logger.Error("Failed to persist credentials", map[string]interface{}{
			"operation": "vault_save_error",
			"error":     saveErr.Error(),
		})
	}

	s.token = creds.Token
	user := creds.User
	s.user = &user

	s.logger.Info("Authenticated", map[string]interface{}{
		"operation":   "auth_exchange",
		"path":        path,
		"remember_me": rememberMe,
	})
	return creds, nil
}

// Logout clears the in-memory session and both credential scopes.
// Synchronous and infallible from the caller's perspective: storage
// failures are logged, never surfaced.
func (s *Store) Logout() {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.err = ""
	s.mu.Unlock()

	if err := s.vault.Clear(context.Background()); err != nil {
		s.logger.Error("Failed to clear persisted credentials", map[string]interface{}{
			"operation": "vault_clear_error",
			"error":     err.Error(),
		})
	}

	s.logger.Info("Logged out", map[string]interface{}{
		"operation": "auth_logout",
	})
}

// IsAuthenticated reports whether a non-empty token is held. The token is
// never re-validated against the server.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the current bearer token, empty when unauthenticated
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Snapshot returns a copy of the current auth state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Token:     s.token,
		IsLoading: s.isLoading,
		Err:       s.err,
	}
	if s.user != nil {
		user := *s.user
		snap.User = &user
	}
	return snap
}
