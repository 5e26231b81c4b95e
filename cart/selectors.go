package cart

import (
	"fmt"
	"math"
	"strings"
)

// DefaultCurrency is the fixed fallback when neither the cart nor any line
// carries a currency
const DefaultCurrency = "INR"

// Selectors are pure, side-effect-free functions over a cart snapshot.
// They are consumed by multiple display surfaces and by the checkout
// orchestrator, so they live here rather than in any caller.

// ItemCount returns the sum of line quantities
func ItemCount(c *Cart) int {
	if c == nil {
		return 0
	}
	total := 0
	for _, line := range c.Items {
		total += line.Quantity
	}
	return total
}

// unitAmount resolves a line's effective unit price: the add-time snapshot
// when present, else the live variant price, else zero
func unitAmount(line Line) float64 {
	if line.UnitPrice != nil {
		return line.UnitPrice.Amount
	}
	if line.Variant.Price != nil {
		return line.Variant.Price.Amount
	}
	return 0
}

// Subtotal prefers the server-computed value and falls back to summing
// unit price times quantity per line
func Subtotal(c *Cart) float64 {
	if c == nil {
		return 0
	}
	if c.Computed != nil {
		return c.Computed.Subtotal
	}
	sum := 0.0
	for _, line := range c.Items {
		sum += unitAmount(line) * float64(line.Quantity)
	}
	return sum
}

// Currency resolves the display currency: cart-level computed currency,
// else the first line's price snapshot, else the first line's variant
// price, else the fixed default.
func Currency(c *Cart) string {
	if c != nil {
		if c.Computed != nil && c.Computed.Currency != "" {
			return c.Computed.Currency
		}
		for _, line := range c.Items {
			if line.UnitPrice != nil && line.UnitPrice.Currency != "" {
				return line.UnitPrice.Currency
			}
			if line.Variant.Price != nil && line.Variant.Price.Currency != "" {
				return line.Variant.Price.Currency
			}
			break
		}
	}
	return DefaultCurrency
}

// FreeShippingProgress reports how far a subtotal is from the
// free-shipping threshold: the remaining amount (zero once reached) and
// the progress percentage capped at 100.
func FreeShippingProgress(subtotal, threshold float64) (remaining float64, percent int) {
	if threshold <= 0 {
		return 0, 100
	}
	remaining = math.Max(0, threshold-subtotal)
	percent = int(math.Min(100, math.Round(subtotal/threshold*100)))
	return remaining, percent
}

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormatMoney renders an amount for display. Locale-aware formatting
// covers the locales the storefront ships with; anything else falls back
// to "<CUR> <amount>" with two decimals.
func FormatMoney(amount float64, currency, locale string) string {
	symbol, known := currencySymbols[currency]
	if !known {
		return fmt.Sprintf("%s %.2f", currency, amount)
	}

	switch locale {
	case "en-IN":
		return symbol + groupDigits(amount, true)
	case "en-US", "en-GB", "en-AU", "en-CA":
		return symbol + groupDigits(amount, false)
	default:
		return fmt.Sprintf("%s %.2f", currency, amount)
	}
}

// groupDigits formats to two decimals with thousands separators. Indian
// grouping separates the first three digits, then pairs: 12,34,567.89.
func groupDigits(amount float64, indian bool) string {
	negative := amount < 0
	s := fmt.Sprintf("%.2f", math.Abs(amount))
	parts := strings.SplitN(s, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var groups []string
	if indian {
		if len(intPart) > 3 {
			head := intPart[:len(intPart)-3]
			groups = append(groups, intPart[len(intPart)-3:])
			for len(head) > 2 {
				groups = append([]string{head[len(head)-2:]}, groups...)
				head = head[:len(head)-2]
			}
			if head != "" {
				groups = append([]string{head}, groups...)
			}
		} else {
			groups = []string{intPart}
		}
	} else {
		for len(intPart) > 3 {
			groups = append([]string{intPart[len(intPart)-3:]}, groups...)
			intPart = intPart[:len(intPart)-3]
		}
		if intPart != "" {
			groups = append([]string{intPart}, groups...)
		}
	}

	out := strings.Join(groups, ",") + "." + fracPart
	if negative {
		return "-" + out
	}
	return out
}
