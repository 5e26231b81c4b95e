package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lumiere-shop/storefront/core"
)

const (
	tokenKey = "auth_token"
	userKey  = "auth_user"
)

// Vault persists credentials across two storage scopes. "Remember me"
// writes to the durable scope, otherwise to the session scope. Writing to
// one scope always clears the other, so exactly one scope holds the active
// credential at a time and a stale duplicate can never shadow a logout.
type Vault struct {
	durable core.Storage
	session core.Storage
	ttl     time.Duration
	logger  core.Logger
}

// NewVault creates a credential vault over the two storage scopes
func NewVault(durable, session core.Storage, ttl time.Duration, logger core.Logger) *Vault {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Vault{
		durable: durable,
		session: session,
		ttl:     ttl,
		logger:  logger,
	}
}

// Save writes credentials to the scope selected by rememberMe and clears
// the other scope.
func (v *Vault) Save(ctx context.Context, creds Credentials, rememberMe bool) error {
	target, other := v.session, v.durable
	ttl := time.Duration(0)
	if rememberMe {
		target, other = v.durable, v.session
		ttl = v.ttl
	}

	userJSON, err := json.Marshal(creds.User)
	if err != nil {
		return err
	}

	if err := target.Set(ctx, tokenKey, creds.Token, ttl); err != nil {
		return err
	}
	if err := target.Set(ctx, userKey, string(userJSON), ttl); err != nil {
		return err
	}

	if err := other.Delete(ctx, tokenKey); err != nil {
		return err
	}
	if err := other.Delete(ctx, userKey); err != nil {
		return err
	}

	v.logger.Debug("Credentials saved", map[string]interface{}{
		"operation":   "vault_save",
		"remember_me": rememberMe,
	})
	return nil
}

// Load reads credentials, checking the durable scope first and falling
// back to the session scope. Returns false when neither scope holds a token.
func (v *Vault) Load(ctx context.Context) (Credentials, bool, error) {
	for _, scope := range []core.Storage{v.durable, v.session} {
		token, err := scope.Get(ctx, tokenKey)
		if err != nil {
			return Credentials{}, false, err
		}
		if token == "" {
			continue
		}

		creds := Credentials{Token: token}
		userJSON, err := scope.Get(ctx, userKey)
		if err != nil {
			return Credentials{}, false, err
		}
		if userJSON != "" {
			// A corrupt user snapshot does not invalidate the token
			_ = json.Unmarshal([]byte(userJSON), &creds.User)
		}
		return creds, true, nil
	}
	return Credentials{}, false, nil
}

// Clear removes credentials from both scopes
func (v *Vault) Clear(ctx context.Context) error {
	var firstErr error
	for _, scope := range []core.Storage{v.durable, v.session} {
		for _, key := range []string{tokenKey, userKey} {
			if err := scope.Delete(ctx, key); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
