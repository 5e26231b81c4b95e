package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func line(quantity int, unitPrice, variantPrice *Money) Line {
	return Line{
		ID:        "line-1",
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Variant:   Variant{ID: "v-1", Price: variantPrice},
	}
}

func TestItemCount(t *testing.T) {
	assert.Equal(t, 0, ItemCount(nil))
	assert.Equal(t, 0, ItemCount(&Cart{}))

	c := &Cart{Items: []Line{
		line(2, nil, nil),
		line(3, nil, nil),
	}}
	assert.Equal(t, 5, ItemCount(c))
}

func TestSubtotal(t *testing.T) {
	tests := []struct {
		name string
		cart *Cart
		want float64
	}{
		{
			name: "nil cart",
			cart: nil,
			want: 0,
		},
		{
			name: "server computed value preferred",
			cart: &Cart{
				Items:    []Line{line(2, &Money{Amount: 50, Currency: "INR"}, nil)},
				Computed: &Computed{Subtotal: 95, Currency: "INR"},
			},
			want: 95,
		},
		{
			name: "fallback sums unit price times quantity",
			cart: &Cart{
				Items: []Line{line(2, &Money{Amount: 50, Currency: "INR"}, nil)},
			},
			want: 100,
		},
		{
			name: "fallback uses variant price when snapshot absent",
			cart: &Cart{
				Items: []Line{
					line(2, nil, &Money{Amount: 10, Currency: "INR"}),
					line(1, &Money{Amount: 5, Currency: "INR"}, &Money{Amount: 99, Currency: "INR"}),
				},
			},
			want: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Subtotal(tt.cart), 1e-9)
		})
	}
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		name string
		cart *Cart
		want string
	}{
		{
			name: "nil cart uses default",
			cart: nil,
			want: "INR",
		},
		{
			name: "computed currency wins",
			cart: &Cart{
				Items:    []Line{line(1, &Money{Amount: 1, Currency: "USD"}, nil)},
				Computed: &Computed{Currency: "EUR"},
			},
			want: "EUR",
		},
		{
			name: "first line unit price next",
			cart: &Cart{
				Items: []Line{line(1, &Money{Amount: 1, Currency: "USD"}, &Money{Amount: 1, Currency: "GBP"})},
			},
			want: "USD",
		},
		{
			name: "variant price when no snapshot",
			cart: &Cart{
				Items: []Line{line(1, nil, &Money{Amount: 1, Currency: "GBP"})},
			},
			want: "GBP",
		},
		{
			name: "empty cart uses default",
			cart: &Cart{},
			want: "INR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Currency(tt.cart))
		})
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency string
		locale   string
		want     string
	}{
		{name: "indian grouping", amount: 1234567.89, currency: "INR", locale: "en-IN", want: "₹12,34,567.89"},
		{name: "indian small amount", amount: 79, currency: "INR", locale: "en-IN", want: "₹79.00"},
		{name: "western grouping", amount: 1234.5, currency: "USD", locale: "en-US", want: "$1,234.50"},
		{name: "unknown currency falls back", amount: 10, currency: "XYZ", locale: "en-IN", want: "XYZ 10.00"},
		{name: "unknown locale falls back", amount: 10, currency: "INR", locale: "fr-FR", want: "INR 10.00"},
		{name: "negative amount", amount: -250.5, currency: "USD", locale: "en-US", want: "$-250.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(tt.amount, tt.currency, tt.locale))
		})
	}
}

func TestFreeShippingProgress(t *testing.T) {
	remaining, percent := FreeShippingProgress(0, 999)
	assert.InDelta(t, 999, remaining, 1e-9)
	assert.Equal(t, 0, percent)

	remaining, percent = FreeShippingProgress(499.5, 999)
	assert.InDelta(t, 499.5, remaining, 1e-9)
	assert.Equal(t, 50, percent)

	// At the threshold shipping is free and progress is complete
	remaining, percent = FreeShippingProgress(999, 999)
	assert.InDelta(t, 0, remaining, 1e-9)
	assert.Equal(t, 100, percent)

	remaining, percent = FreeShippingProgress(5000, 999)
	assert.InDelta(t, 0, remaining, 1e-9)
	assert.Equal(t, 100, percent)
}
