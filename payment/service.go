// Package payment talks to the backend's payment-provider endpoints:
// creating a provider order before the hosted checkout opens, and verifying
// the provider-signed correlation values afterwards. Verification is the
// only thing that makes a client-reported success trustworthy.
package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lumiere-shop/storefront/api"
	"github.com/lumiere-shop/storefront/core"
)

const (
	createOrderPath = "/api/payments/provider/create-order"
	verifyPath      = "/api/payments/provider/verify"
)

// ShippingAddress is the address snapshot attached to a provider order
type ShippingAddress struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// OrderRequest creates a provider order. Amount is in minor units (paise
// for INR): the orchestrator converts from the major-unit grand total.
type OrderRequest struct {
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Receipt         string            `json:"receipt"`
	Notes           map[string]string `json:"notes,omitempty"`
	ShippingAddress ShippingAddress   `json:"shippingAddress"`
}

// ProviderOrder is the gateway-side transaction handle returned by the
// backend, used to open the hosted payment UI
type ProviderOrder struct {
	Key      string `json:"key"`
	OrderID  string
	Amount   int64
	Currency string
}

// createOrderResponse matches the backend's {key, order} shape
type createOrderResponse struct {
	Key   string `json:"key"`
	Order struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"order"`
}

// Confirmation carries the three provider-supplied correlation values
// reported by the hosted checkout on success
type Confirmation struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Err     string `json:"error,omitempty"`
}

// Service drives the provider endpoints. Safe for concurrent use.
type Service struct {
	mu     sync.RWMutex
	client *api.Client
	logger core.Logger

	creatingOrder bool
	verifying     bool
}

// NewService creates a payment service
func NewService(client *api.Client, logger core.Logger) *Service {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Service{client: client, logger: logger}
}

// NewReceipt generates a fresh receipt identifier for a provider order
func NewReceipt() string {
	return "rcpt_" + uuid.New().String()
}

// CreateProviderOrder asks the backend to create a provider-side order.
// An empty receipt is filled in automatically.
func (s *Service) CreateProviderOrder(ctx context.Context, rctx api.RequestContext, req OrderRequest) (*ProviderOrder, error) {
	if req.Receipt == "" {
		req.Receipt = NewReceipt()
	}

	s.setCreating(true)
	defer s.setCreating(false)

	var resp createOrderResponse
	if err := s.client.Post(ctx, rctx, createOrderPath, req, &resp); err != nil {
		s.logger.Warn("Provider order creation failed", map[string]interface{}{
			"operation": "payment_create_order_error",
			"error":     api.ErrorMessage(err),
		})
		return nil, core.NewStorefrontError("payment.CreateProviderOrder", "payment", err)
	}

	s.logger.Info("Provider order created", map[string]interface{}{
		"operation": "payment_create_order",
		"order_id":  resp.Order.ID,
		"amount":    resp.Order.Amount,
		"currency":  resp.Order.Currency,
	})

	return &ProviderOrder{
		Key:      resp.Key,
		OrderID:  resp.Order.ID,
		Amount:   resp.Order.Amount,
		Currency: resp.Order.Currency,
	}, nil
}

// Verify confirms a client-reported payment with the backend. Anything
// short of an explicit success is a verification failure.
func (s *Service) Verify(ctx context.Context, rctx api.RequestContext, conf Confirmation) error {
	s.setVerifying(true)
	defer s.setVerifying(false)

	var resp verifyResponse
	if err := s.client.Post(ctx, rctx, verifyPath, conf, &resp); err != nil {
		return core.NewStorefrontError("payment.Verify", "payment", err)
	}
	if !resp.Success {
		s.logger.Error("Payment verification rejected", map[string]interface{}{
			"operation": "payment_verify_error",
			"order_id":  conf.OrderID,
			"error":     resp.Err,
		})
		return core.NewStorefrontError("payment.Verify", "payment", core.ErrVerificationFailed)
	}

	s.logger.Info("Payment verified", map[string]interface{}{
		"operation":  "payment_verify",
		"order_id":   conf.OrderID,
		"payment_id": conf.PaymentID,
	})
	return nil
}

// CreatingOrder reports whether an order creation is in flight
func (s *Service) CreatingOrder() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creatingOrder
}

// Verifying reports whether a verification is in flight
func (s *Service) Verifying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verifying
}

func (s *Service) setCreating(v bool) {
	s.mu.Lock()
	s.creatingOrder = v
	s.mu.Unlock()
}

func (s *Service) setVerifying(v bool) {
	s.mu.Lock()
	s.verifying = v
	s.mu.Unlock()
}
