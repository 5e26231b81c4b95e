package catalog

import "github.com/lumiere-shop/storefront/cart"

// Category is a product grouping, optionally annotated with a product count
type Category struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ProductCount int    `json:"productCount,omitempty"`
}

// Brand is a product manufacturer entry
type Brand struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// HeroSlide is one entry of the storefront's hero carousel
type HeroSlide struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Image    string `json:"image"`
	Link     string `json:"link,omitempty"`
}

// Product is a catalog listing entry
type Product struct {
	ID          string           `json:"_id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description,omitempty"`
	Brand       string           `json:"brand,omitempty"`
	Category    string           `json:"category,omitempty"`
	Images      []string         `json:"images,omitempty"`
	Price       *cart.Money      `json:"price,omitempty"`
	Rating      float64          `json:"rating,omitempty"`
	ReviewCount int              `json:"reviewCount,omitempty"`
	Featured    bool             `json:"featured,omitempty"`
	InStock     bool             `json:"inStock,omitempty"`
	Variants    []ProductVariant `json:"variants,omitempty"`
}

// ProductVariant is a purchasable variation of a product
type ProductVariant struct {
	ID      string        `json:"_id"`
	Price   *cart.Money   `json:"price,omitempty"`
	Options []cart.Option `json:"options,omitempty"`
	InStock bool          `json:"inStock,omitempty"`
}

// Review is one customer review of a product
type Review struct {
	ID      string  `json:"_id"`
	Author  string  `json:"author"`
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment,omitempty"`
}
