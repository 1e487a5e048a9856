package discount

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDiscountRepo struct {
	discount *Discount
	err      error
}

func (m *mockDiscountRepo) FindByCode(_ context.Context, _ string) (*Discount, error) {
	return m.discount, m.err
}

func (m *mockDiscountRepo) Create(_ context.Context, _ *Discount) error {
	return nil
}

func TestRepoValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name       string
		repo       *mockDiscountRepo
		code       string
		subtotal   string
		wantAmount string
		wantErr    error
	}{
		{
			name: "valid percentage code returns approval",
			repo: &mockDiscountRepo{
				discount: &Discount{Code: "SAVE10", Kind: KindPercentage, Value: decimal.NewFromInt(10), Active: true},
			},
			code:       "SAVE10",
			subtotal:   "200.00",
			wantAmount: "20.00",
		},
		{
			name:     "unknown code returns ErrNotFound",
			repo:     &mockDiscountRepo{err: ErrNotFound},
			code:     "BOGUS",
			subtotal: "50.00",
			wantErr:  ErrNotFound,
		},
		{
			name: "expired code returns ErrExpired",
			repo: &mockDiscountRepo{
				discount: &Discount{Code: "OLD", Kind: KindPercentage, Value: decimal.NewFromInt(10), ExpiresAt: &pastTime, Active: true},
			},
			code:     "OLD",
			subtotal: "100.00",
			wantErr:  ErrExpired,
		},
		{
			name: "future expiry still valid",
			repo: &mockDiscountRepo{
				discount: &Discount{Code: "FRESH", Kind: KindFixed, Value: decimal.NewFromInt(5), ExpiresAt: &futureTime, Active: true},
			},
			code:       "FRESH",
			subtotal:   "100.00",
			wantAmount: "5.00",
		},
		{
			name: "usage cap reached returns ErrUsageExceeded",
			repo: &mockDiscountRepo{
				discount: &Discount{Code: "CAPPED", Kind: KindPercentage, Value: decimal.NewFromInt(10), MaxUses: 100, Uses: 100, Active: true},
			},
			code:     "CAPPED",
			subtotal: "100.00",
			wantErr:  ErrUsageExceeded,
		},
		{
			name: "usage under cap succeeds",
			repo: &mockDiscountRepo{
				discount: &Discount{Code: "HASROOM", Kind: KindPercentage, Value: decimal.NewFromInt(10), MaxUses: 100, Uses: 99, Active: true},
			},
			code:       "HASROOM",
			subtotal:   "100.00",
			wantAmount: "10.00",
		},
		{
			name: "zero max uses means uncapped",
			repo: &mockDiscountRepo{
				discount: &Discount{Code: "FOREVER", Kind: KindFixed, Value: decimal.NewFromInt(5), MaxUses: 0, Uses: 9999, Active: true},
			},
			code:       "FOREVER",
			subtotal:   "100.00",
			wantAmount: "5.00",
		},
		{
			name: "fixed amount clamped to subtotal",
			repo: &mockDiscountRepo{
				discount: &Discount{Code: "BIG50", Kind: KindFixed, Value: decimal.NewFromInt(50), Active: true},
			},
			code:       "BIG50",
			subtotal:   "30.00",
			wantAmount: "30.00",
		},
		{
			name: "free shipping approves with zero amount",
			repo: &mockDiscountRepo{
				discount: &Discount{Code: "SHIPFREE", Kind: KindFreeShipping, Value: decimal.Zero, Active: true},
			},
			code:       "SHIPFREE",
			subtotal:   "100.00",
			wantAmount: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewRepoValidator(tt.repo)
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), tt.code, decimal.RequireFromString(tt.subtotal))

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			want := decimal.RequireFromString(tt.wantAmount)
			assert.True(t, want.Equal(got.Amount), "expected amount %s, got %s", want, got.Amount)
			assert.Equal(t, tt.repo.discount.Code, got.Code)
			assert.Equal(t, tt.repo.discount.Kind, got.Kind)
		})
	}
}

func TestRepoValidator_LookupError(t *testing.T) {
	v := NewRepoValidator(&mockDiscountRepo{err: errors.New("connection refused")})

	_, err := v.Validate(context.Background(), "ANY", decimal.NewFromInt(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup discount")
}
