package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount strategies.
type Kind string

const (
	// KindPercentage applies value% of the cart subtotal.
	KindPercentage Kind = "percentage"
	// KindFixed applies a fixed monetary amount capped at the subtotal.
	KindFixed Kind = "fixed"
	// KindFreeShipping waives the shipping fee. The monetary discount amount
	// is zero; the waiver itself is applied by the shipping calculation,
	// which is outside this service.
	KindFreeShipping Kind = "free_shipping"
)

// Valid reports whether k is one of the known discount kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPercentage, KindFixed, KindFreeShipping:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when no discount matches the normalized code,
	// or when a matching discount is inactive.
	ErrNotFound = errors.New("discount code not found")
	// ErrExpired is returned when the current time is past the discount's
	// expiry timestamp.
	ErrExpired = errors.New("discount code expired")
	// ErrUsageExceeded is returned when the discount has reached its use cap.
	ErrUsageExceeded = errors.New("discount code usage limit reached")
	// ErrCodeExists is returned on admin writes with a duplicate code.
	ErrCodeExists = errors.New("discount code already exists")
)

// Discount is a redeemable code. Codes are stored and compared upper-cased.
// MaxUses and ExpiresAt are optional: zero MaxUses means uncapped, nil
// ExpiresAt means no expiry.
type Discount struct {
	Code      string
	Kind      Kind
	Value     decimal.Decimal
	MaxUses   int
	Uses      int
	ExpiresAt *time.Time
	Active    bool
	CreatedAt time.Time
}

// Approval is the result of successfully validating a code against a subtotal.
type Approval struct {
	Code   string
	Kind   Kind
	Amount decimal.Decimal
}

// Repository provides lookup and creation of discounts. FindByCode normalizes
// the code to upper case and only returns active discounts; missing or
// inactive codes yield ErrNotFound. Create returns ErrCodeExists on duplicates.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Discount, error)
	Create(ctx context.Context, d *Discount) error
}
