// Package storefront is a headless Go client for the Lumière e-commerce
// backend: catalog browsing, guest and authenticated carts with
// merge-on-login, and checkout through a hosted payment gateway or
// cash on delivery.
//
// The facade wires configuration, logging, telemetry, storage, and the
// per-concern stores together. Each sub-package remains usable on its own
// for callers that want finer control:
//   - github.com/lumiere-shop/storefront/api - envelope-aware REST client
//   - github.com/lumiere-shop/storefront/auth - credentials and session state
//   - github.com/lumiere-shop/storefront/cart - server-authoritative cart
//   - github.com/lumiere-shop/storefront/catalog - product browsing
//   - github.com/lumiere-shop/storefront/checkout - order placement
package storefront

import (
	"context"

	"github.com/lumiere-shop/storefront/api"
	"github.com/lumiere-shop/storefront/auth"
	"github.com/lumiere-shop/storefront/cart"
	"github.com/lumiere-shop/storefront/catalog"
	"github.com/lumiere-shop/storefront/checkout"
	"github.com/lumiere-shop/storefront/core"
	"github.com/lumiere-shop/storefront/payment"
	"github.com/lumiere-shop/storefront/telemetry"
)

// Storefront bundles the client SDK for one backend. Create it with New,
// then Restore to rehydrate any persisted session and guest cart.
type Storefront struct {
	cfg    *core.Config
	logger core.Logger

	telemetryProvider *telemetry.Provider
	client            *api.Client
	durable           core.Storage
	session           core.Storage
	redis             *core.RedisStore

	auth     *auth.Store
	cart     *cart.Store
	catalog  *catalog.Service
	payments *payment.Service
	checkout *checkout.Orchestrator
}

// New creates a fully wired storefront client
func New(opts ...core.Option) (*Storefront, error) {
	cfg, err := core.NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	logger := core.NewJSONLogger(cfg.Name, cfg.Logging.Level)

	telemetryProvider, err := telemetry.Init(cfg)
	if err != nil {
		return nil, err
	}

	s := &Storefront{
		cfg:               cfg,
		logger:            logger,
		telemetryProvider: telemetryProvider,
		session:           core.NewMemoryStore(),
	}

	switch cfg.Storage.Provider {
	case "redis":
		redisStore, err := core.NewRedisStore(core.RedisStoreOptions{
			RedisURL:  cfg.Storage.RedisURL,
			Namespace: cfg.Storage.Namespace,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		s.redis = redisStore
		s.durable = redisStore
	default:
		s.durable = core.NewMemoryStore()
	}

	s.client = api.NewClient(api.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		Logger:    logger,
		Telemetry: telemetryProvider,
	})

	vault := auth.NewVault(s.durable, s.session, cfg.Storage.CredentialTTL, logger)
	s.auth = auth.NewStore(s.client, vault, logger)
	s.cart = cart.NewStore(s.client, s.auth, s.durable, logger)
	s.catalog = catalog.NewService(s.client, logger)
	s.payments = payment.NewService(s.client, logger)
	s.checkout = checkout.NewOrchestrator(s.client, s.cart, s.auth, s.payments, nil, cfg.Checkout, logger, telemetryProvider)

	logger.Info("Storefront client initialized", map[string]interface{}{
		"operation": "storefront_init",
		"base_url":  cfg.API.BaseURL,
		"storage":   cfg.Storage.Provider,
	})
	return s, nil
}

// Restore rehydrates persisted state: remembered credentials and the guest
// cart key. Call it once before issuing requests.
func (s *Storefront) Restore(ctx context.Context) error {
	if err := s.auth.Restore(ctx); err != nil {
		return err
	}
	return s.cart.Restore(ctx)
}

// LoginAndMerge performs the canonical sign-in sequence: authenticate,
// fold the guest cart into the account cart, then refetch. A merge or
// fetch failure does not undo the login; the error reports what remains
// to be retried.
func (s *Storefront) LoginAndMerge(ctx context.Context, email, password string, rememberMe bool) (auth.Credentials, error) {
	creds, err := s.auth.Login(ctx, email, password, rememberMe)
	if err != nil {
		return auth.Credentials{}, err
	}

	if s.cart.GuestKey() != "" {
		if _, err := s.cart.MergeGuestCart(ctx); err != nil {
			return creds, err
		}
	}
	if _, err := s.cart.Fetch(ctx); err != nil {
		return creds, err
	}
	return creds, nil
}

// UseGateway attaches the hosted payment collaborator enabling card
// checkout
func (s *Storefront) UseGateway(g checkout.Gateway) {
	s.checkout.SetGateway(g)
}

// Config returns the resolved configuration
func (s *Storefront) Config() *core.Config { return s.cfg }

// Auth returns the authentication store
func (s *Storefront) Auth() *auth.Store { return s.auth }

// Cart returns the cart store
func (s *Storefront) Cart() *cart.Store { return s.cart }

// Catalog returns the catalog service
func (s *Storefront) Catalog() *catalog.Service { return s.catalog }

// Payments returns the payment service
func (s *Storefront) Payments() *payment.Service { return s.payments }

// Checkout returns the checkout orchestrator
func (s *Storefront) Checkout() *checkout.Orchestrator { return s.checkout }

// Client returns the underlying API client
func (s *Storefront) Client() *api.Client { return s.client }

// Close flushes telemetry and releases storage connections
func (s *Storefront) Close(ctx context.Context) error {
	var firstErr error
	if s.telemetryProvider != nil {
		if err := s.telemetryProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
