package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Category is the closed set of catalog categories.
type Category string

const (
	CategoryGourmet    Category = "Gourmet"
	CategoryWellness   Category = "Wellness"
	CategoryStationery Category = "Stationery"
	CategoryHomeGoods  Category = "Home Goods"
	CategoryApparel    Category = "Apparel"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryGourmet, CategoryWellness, CategoryStationery, CategoryHomeGoods, CategoryApparel:
		return true
	}
	return false
}

// Product represents a catalog item available for purchase.
// Stock is mutated only by order placement (conditional decrement) and admin edits.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Images      []string
	Category    Category
	Stock       int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Thumbnail returns the first image reference, or "" when none exist.
// Order line items snapshot this value at purchase time.
func (p Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ListFilter narrows catalog listings.
type ListFilter struct {
	// Category limits results to a single category when set.
	Category Category
	// IncludeInactive also returns products hidden from the storefront.
	IncludeInactive bool
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context, f ListFilter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
}
