// Package box holds the themed box domain: a curated bundle sold at a fixed
// price that expands into its constituent products at purchase time.
package box

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/curatedcrate/storefront/internal/domain/product"
)

var (
	// ErrNotFound is returned when a requested themed box does not exist.
	ErrNotFound = errors.New("themed box not found")
	// ErrNoProducts is returned on writes that would leave a box without
	// any contained products.
	ErrNoProducts = errors.New("themed box must contain at least one product")
)

// ThemedBox is a curated bundle. Price is the box-level price, independent of
// the summed prices of the contained products. Products is ordered and
// non-empty, enforced on admin writes.
type ThemedBox struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Products    []product.Product
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository defines persistence operations for themed boxes.
// GetByID resolves the contained product list in stored order.
type Repository interface {
	List(ctx context.Context) ([]ThemedBox, error)
	GetByID(ctx context.Context, id string) (*ThemedBox, error)
	Create(ctx context.Context, b *ThemedBox, productIDs []string) error
	Update(ctx context.Context, b *ThemedBox, productIDs []string) error
}
