package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Auth-related errors
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Cart-related errors
	ErrEmptyCart        = errors.New("cart is empty")
	ErrCartLineNotFound = errors.New("cart line not found")
	ErrMissingVariant   = errors.New("variant id is required")
	ErrStaleResponse    = errors.New("stale response discarded")

	// Checkout-related errors
	ErrSubmitInFlight     = errors.New("checkout already in progress")
	ErrPaymentCancelled   = errors.New("payment cancelled")
	ErrVerificationFailed = errors.New("payment verification failed")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// HTTP/Network errors
	ErrConnectionFailed = errors.New("connection failed")
	ErrRequestFailed    = errors.New("request failed")
)

// StorefrontError provides structured error information with context
// It implements the error interface and supports error wrapping
type StorefrontError struct {
	Op      string // Operation that failed (e.g., "cart.Add")
	Kind    string // Error kind (e.g., "auth", "cart", "checkout", "config")
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *StorefrontError) Error() string {
	if e.Op != "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *StorefrontError) Unwrap() error {
	return e.Err
}

// NewStorefrontError creates a new StorefrontError
func NewStorefrontError(op, kind string, err error) *StorefrontError {
	return &StorefrontError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsCancelled checks if an error represents a user-cancelled payment.
// Cancellation is recoverable: the cart is untouched and resubmitting is allowed.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrPaymentCancelled)
}

// IsRecoverable checks if an error leaves the flow retriable by the shopper
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrPaymentCancelled) ||
		errors.Is(err, ErrVerificationFailed) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrRequestFailed) ||
		errors.Is(err, ErrConnectionFailed)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}
