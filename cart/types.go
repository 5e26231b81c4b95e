package cart

// Money is an amount in major units with its currency code
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Product is the parent-product snapshot carried on a populated variant
type Product struct {
	Name   string   `json:"name"`
	Slug   string   `json:"slug"`
	Images []string `json:"images,omitempty"`
}

// Variant references a purchasable product variant. The backend populates
// it on cart reads, including the live price and parent product snapshot.
type Variant struct {
	ID      string   `json:"_id"`
	Price   *Money   `json:"price,omitempty"`
	Product *Product `json:"product,omitempty"`
}

// Option is one name/value pair selected at add-time (e.g. size, color).
// Display-only: options never participate in client-side pricing.
type Option struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Line is one cart entry. ID is server-issued and stable across updates.
// UnitPrice is the price snapshot taken at add-time; when absent, the live
// variant price applies.
type Line struct {
	ID        string   `json:"_id"`
	Variant   Variant  `json:"variantId"`
	Quantity  int      `json:"quantity"`
	UnitPrice *Money   `json:"unitPrice,omitempty"`
	Options   []Option `json:"options,omitempty"`
}

// Computed carries the server-calculated totals. The client prefers these
// over its own summation whenever present.
type Computed struct {
	Subtotal float64 `json:"subtotal"`
	Currency string  `json:"currency"`
}

// Cart is the server-owned aggregate, fetched and replaced wholesale on
// every mutation. The client never patches it locally.
type Cart struct {
	ID       string    `json:"_id,omitempty"`
	Items    []Line    `json:"items"`
	Computed *Computed `json:"computed,omitempty"`
}
