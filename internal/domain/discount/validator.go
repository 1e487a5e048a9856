package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator validates a discount code against a cart subtotal and returns the
// approved discount amount. Validation is read-only: the use counter is
// incremented separately, at the point the discount is applied to a finalized
// order.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Approval, error)
}

// RepoValidator implements Validator by looking up discounts from a Repository
// and applying them via Apply.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the discount for code, checks expiry and the usage cap,
// and computes the clamped discount amount for the given subtotal.
func (v *RepoValidator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Approval, error) {
	d, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup discount")
	}

	if d.ExpiresAt != nil && v.now().After(*d.ExpiresAt) {
		return nil, ErrExpired
	}
	if d.MaxUses > 0 && d.Uses >= d.MaxUses {
		return nil, ErrUsageExceeded
	}

	amount, err := Apply(d, subtotal)
	if err != nil {
		return nil, err
	}

	return &Approval{
		Code:   d.Code,
		Kind:   d.Kind,
		Amount: amount,
	}, nil
}
