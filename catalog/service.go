// Package catalog exposes the read-only browsing surface of the backend:
// categories, brands, hero slides, and the filtered product listing. All
// calls are unauthenticated and stateless, so the service holds no state
// beyond the API client.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/lumiere-shop/storefront/api"
	"github.com/lumiere-shop/storefront/core"
)

const storePath = "/api/store"

// Query filters the product listing. Zero values are omitted from the
// request. Sort defaults to "newest", page to 1, limit to 12.
type Query struct {
	Q         string
	Category  string
	Brand     string
	Featured  bool
	InStock   bool
	MinPrice  float64
	MaxPrice  float64
	MinRating float64
	Sort      string
	Page      int
	Limit     int
}

func (q Query) encode() string {
	values := url.Values{}
	if q.Q != "" {
		values.Set("q", q.Q)
	}
	if q.Category != "" {
		values.Set("category", q.Category)
	}
	if q.Brand != "" {
		values.Set("brand", q.Brand)
	}
	if q.Featured {
		values.Set("featured", "true")
	}
	if q.InStock {
		values.Set("inStock", "true")
	}
	if q.MinPrice > 0 {
		values.Set("minPrice", strconv.FormatFloat(q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice > 0 {
		values.Set("maxPrice", strconv.FormatFloat(q.MaxPrice, 'f', -1, 64))
	}
	if q.MinRating > 0 {
		values.Set("minRating", strconv.FormatFloat(q.MinRating, 'f', -1, 64))
	}

	sort := q.Sort
	if sort == "" {
		sort = "newest"
	}
	values.Set("sort", sort)

	page := q.Page
	if page < 1 {
		page = 1
	}
	values.Set("page", strconv.Itoa(page))

	limit := q.Limit
	if limit < 1 {
		limit = 12
	}
	values.Set("limit", strconv.Itoa(limit))

	return values.Encode()
}

// ProductPage is one page of the product listing
type ProductPage struct {
	Products []Product
	Meta     *api.Meta
}

// ReviewPage is one page of a product's reviews
type ReviewPage struct {
	Reviews []Review
	Meta    *api.Meta
}

// Service provides catalog reads over the API client
type Service struct {
	client *api.Client
	logger core.Logger
}

// NewService creates a catalog service
func NewService(client *api.Client, logger core.Logger) *Service {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Service{client: client, logger: logger}
}

// Categories lists product categories, optionally annotated with counts
func (s *Service) Categories(ctx context.Context, withCounts bool) ([]Category, error) {
	path := storePath + "/categories"
	if withCounts {
		path += "?withCounts=true"
	}
	var out []Category
	if err := s.list(ctx, path, &out); err != nil {
		return nil, core.NewStorefrontError("catalog.Categories", "catalog", err)
	}
	return out, nil
}

// Brands lists product brands
func (s *Service) Brands(ctx context.Context) ([]Brand, error) {
	var out []Brand
	if err := s.list(ctx, storePath+"/brands", &out); err != nil {
		return nil, core.NewStorefrontError("catalog.Brands", "catalog", err)
	}
	return out, nil
}

// HeroSlides lists the homepage hero carousel entries
func (s *Service) HeroSlides(ctx context.Context) ([]HeroSlide, error) {
	var out []HeroSlide
	if err := s.list(ctx, storePath+"/hero-slides", &out); err != nil {
		return nil, core.NewStorefrontError("catalog.HeroSlides", "catalog", err)
	}
	return out, nil
}

// Products lists products matching the query
func (s *Service) Products(ctx context.Context, query Query) (*ProductPage, error) {
	var env api.Envelope
	path := storePath + "/products?" + query.encode()
	if err := s.client.Get(ctx, api.RequestContext{}, path, &env); err != nil {
		return nil, core.NewStorefrontError("catalog.Products", "catalog", err)
	}

	page := &ProductPage{Meta: env.Meta}
	if err := decodeData(env.Data, &page.Products); err != nil {
		return nil, core.NewStorefrontError("catalog.Products", "catalog", err)
	}
	return page, nil
}

// ProductBySlug fetches a product detail
func (s *Service) ProductBySlug(ctx context.Context, slug string) (*Product, error) {
	var env api.Envelope
	if err := s.client.Get(ctx, api.RequestContext{}, storePath+"/products/"+url.PathEscape(slug), &env); err != nil {
		return nil, core.NewStorefrontError("catalog.ProductBySlug", "catalog", err)
	}

	var product Product
	if err := decodeData(env.Data, &product); err != nil {
		return nil, core.NewStorefrontError("catalog.ProductBySlug", "catalog", err)
	}
	return &product, nil
}

// Reviews fetches one page of a product's reviews
func (s *Service) Reviews(ctx context.Context, slug string, page, limit int) (*ReviewPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var env api.Envelope
	path := fmt.Sprintf("%s/products/%s/reviews?page=%d&limit=%d", storePath, url.PathEscape(slug), page, limit)
	if err := s.client.Get(ctx, api.RequestContext{}, path, &env); err != nil {
		return nil, core.NewStorefrontError("catalog.Reviews", "catalog", err)
	}

	out := &ReviewPage{Meta: env.Meta}
	if err := decodeData(env.Data, &out.Reviews); err != nil {
		return nil, core.NewStorefrontError("catalog.Reviews", "catalog", err)
	}
	return out, nil
}

func (s *Service) list(ctx context.Context, path string, out interface{}) error {
	var env api.Envelope
	if err := s.client.Get(ctx, api.RequestContext{}, path, &env); err != nil {
		return err
	}
	return decodeData(env.Data, out)
}

func decodeData(data json.RawMessage, out interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding catalog payload: %w", err)
	}
	return nil
}
