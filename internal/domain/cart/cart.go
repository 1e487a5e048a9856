// Package cart holds the per-user shopping cart: an ordered list of pending
// selections, each either a direct product with quantity or a themed box.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a user has no cart.
var ErrNotFound = errors.New("cart not found")

// ItemKind tags a cart item as a direct product or a themed box reference.
type ItemKind string

const (
	KindProduct   ItemKind = "product"
	KindThemedBox ItemKind = "themedBox"
)

// Item is a pending selection held in a cart prior to checkout.
// ProductID and Quantity are set for KindProduct; BoxID for KindThemedBox.
type Item struct {
	Kind      ItemKind
	ProductID string
	BoxID     string
	Quantity  int
}

// Cart is the single cart owned by a user. Items keep insertion order.
type Cart struct {
	UserID    string
	Items     []Item
	UpdatedAt time.Time
}

// Repository defines persistence operations for carts. Put replaces the
// user's cart wholesale; Delete removes the cart document entirely, which is
// also performed as a side effect of successful order placement.
type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Put(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, userID string) error
}
