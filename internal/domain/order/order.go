// Package order holds the order placement core: cart-to-order expansion,
// pricing, and the transactional commit that keeps stock, the cart, and
// discount usage consistent.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status enumerates the order lifecycle. Orders are immutable once created
// except for admin status transitions.
type Status string

const (
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Sentinel errors for order validation.
var (
	// ErrEmptyCart is returned when placement is attempted with no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrIdempotencyConflict is returned by Store.Place when a concurrent
	// placement with the same idempotency key committed first.
	ErrIdempotencyConflict = errors.New("idempotency key already used")
)

// UnknownItemError indicates a cart item references a product or themed box
// that does not exist. The whole order is rejected rather than silently
// dropping the item.
type UnknownItemError struct {
	Kind string
	ID   string
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InvalidQuantityError indicates a cart item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates a conditional stock decrement failed
// because the product's stock was below the requested quantity. The placement
// transaction is rolled back when this occurs.
type InsufficientStockError struct {
	ProductID string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d)", e.ProductID, e.Requested)
}

// ShippingAddress is the address snapshot captured into the order.
type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// LineItem is a denormalized snapshot captured at purchase time, so later
// price edits never retroactively alter historical orders. Reads resolve
// Name and Image to the current product for display where it still exists,
// keeping the snapshot as fallback.
type LineItem struct {
	ProductID string
	Name      string
	Image     string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Order is a completed purchase.
type Order struct {
	ID              string
	UserID          string
	Items           []LineItem
	ShippingAddress ShippingAddress
	PaymentMethod   string
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	DiscountCode    string
	Total           decimal.Decimal
	Status          Status
	IdempotencyKey  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CustomerOrder is an order joined with its owner, for admin listings.
type CustomerOrder struct {
	Order
	CustomerName  string
	CustomerEmail string
}

// StockDecrement requests that a product's stock be reduced by Quantity,
// conditional on stock >= Quantity.
type StockDecrement struct {
	ProductID string
	Quantity  int
}

// ListFilter narrows admin order listings.
type ListFilter struct {
	// Status filters by exact status; empty or "all" disables the filter.
	Status string
	// Search matches case-insensitively against the owner's name and email,
	// or by exact order id when it parses as a UUID.
	Search   string
	Page     int
	PageSize int
}

// Normalize applies the default page/pageSize of 1/10 to out-of-range values.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 10
	}
}

// TotalPages returns ceil(total / pageSize) for a normalized filter.
func (f ListFilter) TotalPages(total int) int {
	if f.PageSize <= 0 {
		return 0
	}
	return (total + f.PageSize - 1) / f.PageSize
}

// Store is the write side of order persistence. Place commits the entire
// placement as one transaction: idempotency check, conditional stock
// decrements, order + line item insert, discount use increment, and cart
// deletion. A failed decrement surfaces as InsufficientStockError and rolls
// everything back.
type Store interface {
	// FindByIdempotencyKey returns the order previously created by the same
	// user with the same key, or ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error)
	Place(ctx context.Context, o *Order, decrements []StockDecrement) error
}

// Repository is the read side of order persistence, plus the admin status
// transition.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context, f ListFilter) ([]CustomerOrder, int, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
