// Package checkout drives a checkout attempt as a small state machine:
// validate the form against the current cart, compute totals, then either
// record a cash-on-delivery order or run the hosted-gateway flow
// (create provider order, open the payment UI, verify, clear the cart).
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/lumiere-shop/storefront/api"
	"github.com/lumiere-shop/storefront/cart"
	"github.com/lumiere-shop/storefront/core"
	"github.com/lumiere-shop/storefront/payment"
)

const ordersPath = "/api/orders"

// State is the current phase of a checkout attempt
type State string

const (
	StateIdle            State = "idle"
	StateValidating      State = "validating"
	StatePlacing         State = "placing"
	StateCreatingOrder   State = "creating-order"
	StateAwaitingGateway State = "awaiting-gateway"
	StateVerifying       State = "verifying"
	StateCleared         State = "cleared"
	StatePlaced          State = "placed"
	StateFailed          State = "failed"
)

// Method selects how the order is paid
type Method string

const (
	// MethodCard pays through the hosted gateway
	MethodCard Method = "card"
	// MethodCOD places a cash-on-delivery order without the gateway
	MethodCOD Method = "cod"
)

// Totals is the order pricing breakdown. Shipping is a flat fee waived at
// or above the free-shipping threshold; tax is a placeholder the backend
// recomputes authoritatively.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// AmountMinor converts the grand total to integral minor units (paise for
// INR) as payment providers require
func (t Totals) AmountMinor() int64 {
	return int64(math.Round(t.Total * 100))
}

// Result describes a completed checkout
type Result struct {
	OrderID   string
	PaymentID string
	Method    Method
	Totals    Totals
}

// CartSource is the cart dependency of the orchestrator. *cart.Store
// satisfies it.
type CartSource interface {
	Cart() *cart.Cart
	GuestKey() string
	Clear(ctx context.Context) (*cart.Cart, error)
}

// ProfileSource supplies the bearer token and profile prefill for the
// payment UI. *auth.Store satisfies it.
type ProfileSource interface {
	Token() string
}

type orderItem struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type orderRequest struct {
	Items           []orderItem             `json:"items"`
	ShippingAddress payment.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   Method                  `json:"paymentMethod"`
	Totals          Totals                  `json:"totals"`
}

type orderResponse struct {
	ID     string `json:"_id"`
	Status string `json:"status,omitempty"`
}

// Orchestrator runs checkout attempts. Submit is single-flight: a second
// call while one is running fails fast instead of double-creating provider
// orders. Safe for concurrent use.
type Orchestrator struct {
	mu        sync.RWMutex
	client    *api.Client
	carts     CartSource
	profile   ProfileSource
	payments  *payment.Service
	gateway   Gateway
	cfg       core.CheckoutConfig
	logger    core.Logger
	telemetry core.Telemetry

	state    State
	errMsg   string
	inFlight bool
}

// NewOrchestrator creates a checkout orchestrator. The gateway may be nil
// when only cash-on-delivery is offered.
func NewOrchestrator(client *api.Client, carts CartSource, profile ProfileSource, payments *payment.Service, gateway Gateway, cfg core.CheckoutConfig, logger core.Logger, telemetry core.Telemetry) *Orchestrator {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}
	return &Orchestrator{
		client:    client,
		carts:     carts,
		profile:   profile,
		payments:  payments,
		gateway:   gateway,
		cfg:       cfg,
		logger:    logger,
		telemetry: telemetry,
		state:     StateIdle,
	}
}

// Totals computes the pricing breakdown for a cart snapshot
func (o *Orchestrator) Totals(c *cart.Cart) Totals {
	subtotal := cart.Subtotal(c)
	shipping := o.cfg.FlatShippingFee
	if subtotal >= o.cfg.FreeShippingThreshold {
		shipping = 0
	}
	currency := cart.Currency(c)
	if currency == "" {
		currency = o.cfg.DefaultCurrency
	}
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      0,
		Total:    subtotal + shipping,
		Currency: currency,
	}
}

// Submit runs one checkout attempt end to end. On any failure the attempt
// lands in StateFailed with the cart untouched and may be retried.
func (o *Orchestrator) Submit(ctx context.Context, form Form, method Method) (*Result, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.release()

	ctx, span := o.telemetry.StartSpan(ctx, "checkout.Submit")
	defer span.End()
	span.SetAttribute("checkout.method", string(method))

	snapshot := o.carts.Cart()
	if snapshot == nil || len(snapshot.Items) == 0 {
		return nil, o.fail(span, "Your cart is empty", core.ErrEmptyCart)
	}
	if err := form.Validate(); err != nil {
		return nil, o.fail(span, err.Error(), err)
	}

	totals := o.Totals(snapshot)
	span.SetAttribute("checkout.total", totals.Total)

	var (
		result *Result
		err    error
	)
	switch method {
	case MethodCOD:
		result, err = o.placeCOD(ctx, form, snapshot, totals)
	case MethodCard:
		result, err = o.placeWithGateway(ctx, form, totals)
	default:
		return nil, o.fail(span, "Unsupported payment method", core.NewStorefrontError("checkout.Submit", "checkout", errors.New("unsupported payment method")))
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	o.telemetry.RecordMetric("checkout.orders_placed", 1, map[string]string{"method": string(method)})
	return result, nil
}

// placeCOD records the order server-side, then clears the cart. The short
// processing delay mirrors the backend's asynchronous order confirmation.
func (o *Orchestrator) placeCOD(ctx context.Context, form Form, snapshot *cart.Cart, totals Totals) (*Result, error) {
	o.setState(StatePlacing)

	req := orderRequest{
		Items:           make([]orderItem, 0, len(snapshot.Items)),
		ShippingAddress: form.shippingAddress(o.cfg.DefaultCountry),
		PaymentMethod:   MethodCOD,
		Totals:          totals,
	}
	for _, line := range snapshot.Items {
		req.Items = append(req.Items, orderItem{VariantID: line.Variant.ID, Quantity: line.Quantity})
	}

	var env api.Envelope
	if err := o.client.Post(ctx, o.requestContext(), ordersPath, req, &env); err != nil {
		return nil, o.failWith(api.ErrorMessage(err), core.NewStorefrontError("checkout.placeCOD", "checkout", err))
	}
	var resp orderResponse
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &resp); err != nil {
			return nil, o.failWith("Unexpected order response", core.NewStorefrontError("checkout.placeCOD", "checkout", err))
		}
	}

	if o.cfg.CODProcessingDelay > 0 {
		timer := time.NewTimer(o.cfg.CODProcessingDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, o.failWith("Checkout interrupted", core.NewStorefrontError("checkout.placeCOD", "checkout", ctx.Err()))
		}
	}

	o.clearCart(ctx)
	o.setState(StatePlaced)

	o.logger.Info("Cash-on-delivery order placed", map[string]interface{}{
		"operation": "checkout_cod_placed",
		"order_id":  resp.ID,
		"total":     totals.Total,
	})
	return &Result{OrderID: resp.ID, Method: MethodCOD, Totals: totals}, nil
}

// SetGateway attaches or replaces the hosted payment collaborator. Not
// allowed while a submit is running.
func (o *Orchestrator) SetGateway(g Gateway) {
	o.mu.Lock()
	o.gateway = g
	o.mu.Unlock()
}

func (o *Orchestrator) placeWithGateway(ctx context.Context, form Form, totals Totals) (*Result, error) {
	o.mu.RLock()
	gateway := o.gateway
	o.mu.RUnlock()
	if gateway == nil {
		return nil, o.failWith("Card payments are not available", core.NewStorefrontError("checkout.placeWithGateway", "checkout", errors.New("no payment gateway configured")))
	}

	rctx := o.requestContext()

	o.setState(StateCreatingOrder)
	order, err := o.payments.CreateProviderOrder(ctx, rctx, payment.OrderRequest{
		Amount:          totals.AmountMinor(),
		Currency:        totals.Currency,
		Notes:           map[string]string{"email": form.Email},
		ShippingAddress: form.shippingAddress(o.cfg.DefaultCountry),
	})
	if err != nil {
		return nil, o.failWith(api.ErrorMessage(err), err)
	}

	o.setState(StateAwaitingGateway)
	confirmation, err := gateway.Open(ctx, Session{
		Key:      order.Key,
		OrderID:  order.OrderID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Prefill: Prefill{
			Name:    form.FullName(),
			Email:   form.Email,
			Contact: form.Phone,
		},
	})
	if err != nil {
		if errors.Is(err, core.ErrPaymentCancelled) {
			return nil, o.failWith("Payment cancelled", core.NewStorefrontError("checkout.placeWithGateway", "checkout", core.ErrPaymentCancelled))
		}
		return nil, o.failWith("Payment failed", core.NewStorefrontError("checkout.placeWithGateway", "checkout", err))
	}

	o.setState(StateVerifying)
	if err := o.payments.Verify(ctx, rctx, confirmation); err != nil {
		// The provider may have captured the payment even though our
		// verification failed. Leave the cart alone and surface it.
		return nil, o.failWith("Payment verification failed", err)
	}

	o.clearCart(ctx)
	o.setState(StateCleared)

	o.logger.Info("Gateway order completed", map[string]interface{}{
		"operation":  "checkout_gateway_completed",
		"order_id":   order.OrderID,
		"payment_id": confirmation.PaymentID,
		"total":      totals.Total,
	})
	return &Result{OrderID: order.OrderID, PaymentID: confirmation.PaymentID, Method: MethodCard, Totals: totals}, nil
}

// clearCart empties the server cart after a completed purchase. A failure
// here does not fail the checkout: the order exists, the stale cart is
// repaired by the next fetch.
func (o *Orchestrator) clearCart(ctx context.Context) {
	if _, err := o.carts.Clear(ctx); err != nil {
		o.logger.Warn("Cart clear after checkout failed", map[string]interface{}{
			"operation": "checkout_clear_cart_error",
			"error":     err.Error(),
		})
	}
}

func (o *Orchestrator) requestContext() api.RequestContext {
	return api.RequestContext{
		Token:    o.profile.Token(),
		GuestKey: o.carts.GuestKey(),
	}
}

// State reports the phase of the latest checkout attempt
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Err returns the user-facing message of the last failed attempt, empty
// otherwise
func (o *Orchestrator) Err() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.errMsg
}

// InFlight reports whether a submit is currently running
func (o *Orchestrator) InFlight() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.inFlight
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight {
		return core.NewStorefrontError("checkout.Submit", "checkout", core.ErrSubmitInFlight)
	}
	o.inFlight = true
	o.state = StateValidating
	o.errMsg = ""
	return nil
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	o.inFlight = false
	o.mu.Unlock()
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) fail(span core.Span, msg string, err error) error {
	span.RecordError(err)
	return o.failWith(msg, err)
}

func (o *Orchestrator) failWith(msg string, err error) error {
	o.mu.Lock()
	o.state = StateFailed
	o.errMsg = msg
	o.mu.Unlock()

	o.logger.Warn("Checkout attempt failed", map[string]interface{}{
		"operation": "checkout_failed",
		"error":     msg,
	})
	return err
}
