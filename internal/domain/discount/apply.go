package discount

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply calculates the monetary discount amount for d against the given cart
// subtotal. Percentage discounts take value% of the subtotal, fixed discounts
// take the configured value, and free-shipping discounts yield zero. The
// amount is clamped to the subtotal so a discount can never make a line
// negative, then rounded to 2 decimal places.
func Apply(d *Discount, subtotal decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal
	switch d.Kind {
	case KindPercentage:
		amount = subtotal.Mul(d.Value).Div(hundred)
	case KindFixed:
		amount = d.Value
	case KindFreeShipping:
		amount = decimal.Zero
	default:
		return decimal.Zero, errors.Errorf("unsupported discount kind: %q", d.Kind)
	}

	amount = decimal.Min(amount, subtotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(2), nil
}
