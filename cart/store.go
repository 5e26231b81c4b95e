// Package cart holds the client-side cart state. Every operation performs
// exactly one round trip and then replaces the whole in-memory snapshot
// with the server's response, so drift between client and server cannot
// accumulate. The package also owns the guest cart identity lifecycle:
// adopted from response envelopes, resent as a header, and destroyed after
// a successful merge into an authenticated user's cart.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/lumiere-shop/storefront/api"
	"github.com/lumiere-shop/storefront/core"
)

const (
	cartPath           = "/api/cart"
	guestKeyStorageKey = "guest_key"
)

// TokenSource supplies the current bearer token for request construction.
// The auth store implements it.
type TokenSource interface {
	Token() string
}

// Store is the cart state container. Safe for concurrent use; overlapping
// mutations are resolved by a sequence guard (see apply).
type Store struct {
	mu      sync.RWMutex
	client  *api.Client
	tokens  TokenSource
	durable core.Storage
	logger  core.Logger

	cart     *Cart
	guestKey string
	errMsg   string

	fetching  int
	mutating  int
	seq       uint64
	appliedAt uint64
}

// NewStore creates a cart store. durable persists the guest cart key
// across restarts. Call Restore to rehydrate a previously issued key.
func NewStore(client *api.Client, tokens TokenSource, durable core.Storage, logger core.Logger) *Store {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Store{
		client:  client,
		tokens:  tokens,
		durable: durable,
		logger:  logger,
	}
}

// Restore loads a persisted guest key, if any
func (s *Store) Restore(ctx context.Context) error {
	key, err := s.durable.Get(ctx, guestKeyStorageKey)
	if err != nil {
		return core.NewStorefrontError("cart.Restore", "cart", err)
	}
	s.mu.Lock()
	s.guestKey = key
	s.mu.Unlock()
	return nil
}

// requestContext builds the identity headers for the next call: the auth
// token when one is held, and the guest key while one exists.
func (s *Store) requestContext() api.RequestContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rctx := api.RequestContext{GuestKey: s.guestKey}
	if s.tokens != nil {
		rctx.Token = s.tokens.Token()
	}
	return rctx
}

// Fetch retrieves the current cart (guest or authenticated)
func (s *Store) Fetch(ctx context.Context) (*Cart, error) {
	id := s.begin(true)
	rctx := s.requestContext()

	var env api.Envelope
	err := s.client.Get(ctx, rctx, cartPath, &env)
	return s.finish(ctx, "cart.Fetch", id, true, &env, err, applyOptions{replaceOnEmpty: true})
}

type addRequest struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// Add puts quantity units of a variant into the cart. The variant id must
// resolve before calling; an empty id is rejected without a round trip.
func (s *Store) Add(ctx context.Context, variantID string, quantity int) (*Cart, error) {
	if variantID == "" {
		return nil, core.NewStorefrontError("cart.Add", "cart", core.ErrMissingVariant)
	}
	if quantity < 1 {
		quantity = 1
	}

	id := s.begin(false)
	rctx := s.requestContext()

	var env api.Envelope
	err := s.client.Post(ctx, rctx, cartPath+"/items", addRequest{VariantID: variantID, Quantity: quantity}, &env)
	return s.finish(ctx, "cart.Add", id, false, &env, err, applyOptions{})
}

type updateRequest struct {
	Quantity int `json:"quantity"`
}

// Update sets the quantity of an existing line. A target quantity of zero
// or below means the line is gone: the call routes to Remove so the
// invariant holds regardless of caller logic.
func (s *Store) Update(ctx context.Context, itemID string, quantity int) (*Cart, error) {
	if itemID == "" {
		return nil, core.NewStorefrontError("cart.Update", "cart", core.ErrCartLineNotFound)
	}
	if quantity <= 0 {
		return s.Remove(ctx, itemID)
	}

	id := s.begin(false)
	rctx := s.requestContext()

	var env api.Envelope
	err := s.client.Patch(ctx, rctx, cartPath+"/items/"+itemID, updateRequest{Quantity: quantity}, &env)
	return s.finish(ctx, "cart.Update", id, false, &env, err, applyOptions{})
}

// Remove deletes a line by id
func (s *Store) Remove(ctx context.Context, itemID string) (*Cart, error) {
	if itemID == "" {
		return nil, core.NewStorefrontError("cart.Remove", "cart", core.ErrCartLineNotFound)
	}

	id := s.begin(false)
	rctx := s.requestContext()

	var env api.Envelope
	err := s.client.Delete(ctx, rctx, cartPath+"/items/"+itemID, &env)
	return s.finish(ctx, "cart.Remove", id, false, &env, err, applyOptions{})
}

// Clear deletes the whole cart; used after successful order placement
func (s *Store) Clear(ctx context.Context) (*Cart, error) {
	id := s.begin(false)
	rctx := s.requestContext()

	var env api.Envelope
	err := s.client.Delete(ctx, rctx, cartPath, &env)
	return s.finish(ctx, "cart.Clear", id, false, &env, err, applyOptions{replaceOnEmpty: true})
}

// MergeGuestCart folds the guest cart into the authenticated user's cart.
// Call once, immediately after a successful login or registration. On
// success the guest identity is destroyed and never resurrected.
func (s *Store) MergeGuestCart(ctx context.Context) (*Cart, error) {
	id := s.begin(false)
	rctx := s.requestContext()

	var env api.Envelope
	err := s.client.Post(ctx, rctx, cartPath+"/merge", struct{}{}, &env)
	return s.finish(ctx, "cart.MergeGuestCart", id, false, &env, err, applyOptions{
		replaceOnEmpty: true,
		dropGuestKey:   true,
	})
}

// Loading reports whether the initial fetch or any mutation is in flight.
// Callers should disable cart controls while true.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetching > 0 || s.mutating > 0
}

// Cart returns the last server-confirmed snapshot, nil before the first
// successful fetch
func (s *Store) Cart() *Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart
}

// GuestKey returns the current guest cart identity, empty when none exists
func (s *Store) GuestKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guestKey
}

// Err returns the message of the last failed operation, cleared on the
// next attempt
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// begin assigns the operation its sequence number and marks it in flight
func (s *Store) begin(isFetch bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if isFetch {
		s.fetching++
	} else {
		s.mutating++
	}
	s.errMsg = ""
	return s.seq
}

type applyOptions struct {
	// replaceOnEmpty replaces the snapshot even when the envelope carries
	// no cart (fetch of a brand-new shopper, clear, merge). Mutations keep
	// the previous snapshot when the server omits one.
	replaceOnEmpty bool
	// dropGuestKey destroys the guest identity after a successful merge
	dropGuestKey bool
}

// finish settles an operation: error bookkeeping, the sequence guard, and
// wholesale snapshot replacement. A response whose sequence number is not
// newer than the last applied one is discarded untouched - without the
// guard, overlapping mutations would make the cart show whichever response
// happened to arrive last.
func (s *Store) finish(ctx context.Context, op string, id uint64, isFetch bool, env *api.Envelope, opErr error, opts applyOptions) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isFetch {
		s.fetching--
	} else {
		s.mutating--
	}

	if opErr != nil {
		s.errMsg = api.ErrorMessage(opErr)
		s.logger.Warn("Cart operation failed", map[string]interface{}{
			"operation": "cart_op_error",
			"op":        op,
			"error":     s.errMsg,
		})
		return nil, core.NewStorefrontError(op, "cart", opErr)
	}

	if id <= s.appliedAt {
		s.logger.Debug("Discarding superseded cart response", map[string]interface{}{
			"operation": "cart_seq_guard",
			"op":        op,
			"seq":       id,
			"applied":   s.appliedAt,
		})
		return s.cart, core.NewStorefrontError(op, "cart", core.ErrStaleResponse)
	}
	s.appliedAt = id

	snapshot, err := decodeCart(env)
	if err != nil {
		s.errMsg = "malformed cart payload"
		return nil, core.NewStorefrontError(op, "cart", err)
	}

	if snapshot != nil || opts.replaceOnEmpty {
		s.cart = snapshot
	}

	if opts.dropGuestKey {
		if s.guestKey != "" {
			s.guestKey = ""
			if err := s.durable.Delete(ctx, guestKeyStorageKey); err != nil {
				s.logger.Error("Failed to clear guest key", map[string]interface{}{
					"operation": "guest_key_clear_error",
					"error":     err.Error(),
				})
			}
			s.logger.Info("Guest cart merged", map[string]interface{}{
				"operation": "cart_merge",
			})
		}
	} else if env.GuestKey != "" && env.GuestKey != s.guestKey {
		// The server minted (or rotated) a guest identity; adopt and persist it
		s.guestKey = env.GuestKey
		if err := s.durable.Set(ctx, guestKeyStorageKey, env.GuestKey, 0); err != nil {
			s.logger.Error("Failed to persist guest key", map[string]interface{}{
				"operation": "guest_key_save_error",
				"error":     err.Error(),
			})
		}
	}

	return s.cart, nil
}

// decodeCart extracts the cart from an envelope; a null or absent data
// field decodes to nil
func decodeCart(env *api.Envelope) (*Cart, error) {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}
	var c Cart
	if err := json.Unmarshal(env.Data, &c); err != nil {
		return nil, fmt.Errorf("decoding cart: %w", err)
	}
	return &c, nil
}
