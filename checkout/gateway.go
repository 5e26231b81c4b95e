package checkout

import (
	"context"

	"github.com/lumiere-shop/storefront/payment"
)

// Prefill carries contact details handed to the hosted payment UI
type Prefill struct {
	Name    string
	Email   string
	Contact string
}

// Session is everything the hosted payment UI needs to collect a payment
// against a provider order. Amount is in minor units.
type Session struct {
	Key      string
	OrderID  string
	Amount   int64
	Currency string
	Prefill  Prefill
}

// Gateway abstracts the hosted payment collaborator. Open blocks until the
// payer completes or dismisses the payment UI. A dismissal is reported as
// an error wrapping core.ErrPaymentCancelled.
type Gateway interface {
	Open(ctx context.Context, session Session) (payment.Confirmation, error)
}
