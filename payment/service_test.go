package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumiere-shop/storefront/api"
	"github.com/lumiere-shop/storefront/core"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewService(api.NewClient(api.Options{BaseURL: server.URL}), nil)
}

func TestService_CreateProviderOrder(t *testing.T) {
	var gotBody OrderRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/payments/provider/create-order", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"key":"pk_test_123","order":{"id":"order_9","amount":107900,"currency":"INR"}}`))
	})

	order, err := svc.CreateProviderOrder(context.Background(), api.RequestContext{Token: "tok"}, OrderRequest{
		Amount:   107900,
		Currency: "INR",
		ShippingAddress: ShippingAddress{
			Name: "Priya Nair",
			City: "Kochi",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "pk_test_123", order.Key)
	assert.Equal(t, "order_9", order.OrderID)
	assert.Equal(t, int64(107900), order.Amount)
	assert.Equal(t, "INR", order.Currency)

	assert.Equal(t, int64(107900), gotBody.Amount)
	assert.Equal(t, "Priya Nair", gotBody.ShippingAddress.Name)
	// A receipt is filled in when the caller leaves it empty
	assert.True(t, strings.HasPrefix(gotBody.Receipt, "rcpt_"), "receipt %q", gotBody.Receipt)
}

func TestService_CreateProviderOrderKeepsReceipt(t *testing.T) {
	var gotBody OrderRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"key":"pk","order":{"id":"o1","amount":1,"currency":"INR"}}`))
	})

	_, err := svc.CreateProviderOrder(context.Background(), api.RequestContext{}, OrderRequest{
		Amount: 1, Currency: "INR", Receipt: "rcpt_fixed",
	})
	require.NoError(t, err)
	assert.Equal(t, "rcpt_fixed", gotBody.Receipt)
}

func TestService_CreateProviderOrderError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"gateway unavailable"}`))
	})

	_, err := svc.CreateProviderOrder(context.Background(), api.RequestContext{}, OrderRequest{Amount: 100, Currency: "INR"})
	require.Error(t, err)
	assert.Equal(t, "gateway unavailable", api.ErrorMessage(err))
}

func TestService_Verify(t *testing.T) {
	var gotBody Confirmation
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/payments/provider/verify", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	err := svc.Verify(context.Background(), api.RequestContext{Token: "tok"}, Confirmation{
		OrderID:   "order_9",
		PaymentID: "pay_3",
		Signature: "sig",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_9", gotBody.OrderID)
	assert.Equal(t, "pay_3", gotBody.PaymentID)
	assert.Equal(t, "sig", gotBody.Signature)
}

func TestService_VerifyRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "explicit failure", body: `{"success":false,"error":"signature mismatch"}`},
		{name: "missing success flag", body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			err := svc.Verify(context.Background(), api.RequestContext{}, Confirmation{OrderID: "o"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrVerificationFailed))
		})
	}
}

func TestNewReceipt(t *testing.T) {
	a, b := NewReceipt(), NewReceipt()
	assert.True(t, strings.HasPrefix(a, "rcpt_"))
	assert.NotEqual(t, a, b)
}
