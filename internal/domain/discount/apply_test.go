package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		discount *Discount
		subtotal string
		want     string
	}{
		{
			name:     "percentage takes value percent of subtotal",
			discount: &Discount{Code: "SAVE10", Kind: KindPercentage, Value: decimal.NewFromInt(10)},
			subtotal: "200.00",
			want:     "20.00",
		},
		{
			name:     "percentage rounds to 2 decimal places",
			discount: &Discount{Code: "ODD", Kind: KindPercentage, Value: decimal.NewFromInt(15)},
			subtotal: "33.33",
			want:     "5.00",
		},
		{
			name:     "fixed takes the configured value",
			discount: &Discount{Code: "FIVER", Kind: KindFixed, Value: decimal.RequireFromString("5.00")},
			subtotal: "80.00",
			want:     "5.00",
		},
		{
			name:     "fixed is clamped to the subtotal",
			discount: &Discount{Code: "BIG50", Kind: KindFixed, Value: decimal.NewFromInt(50)},
			subtotal: "30.00",
			want:     "30.00",
		},
		{
			name:     "free shipping yields zero monetary amount",
			discount: &Discount{Code: "SHIPFREE", Kind: KindFreeShipping, Value: decimal.Zero},
			subtotal: "100.00",
			want:     "0",
		},
		{
			name:     "hundred percent equals the subtotal",
			discount: &Discount{Code: "FREEBIE", Kind: KindPercentage, Value: decimal.NewFromInt(100)},
			subtotal: "42.50",
			want:     "42.50",
		},
		{
			name:     "zero subtotal yields zero",
			discount: &Discount{Code: "SAVE10", Kind: KindPercentage, Value: decimal.NewFromInt(10)},
			subtotal: "0",
			want:     "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.discount, decimal.RequireFromString(tt.subtotal))

			require.NoError(t, err)
			want := decimal.RequireFromString(tt.want)
			assert.True(t, want.Equal(got), "expected %s, got %s", want, got)
		})
	}
}

func TestApply_UnknownKind(t *testing.T) {
	_, err := Apply(&Discount{Code: "WAT", Kind: "buy_one_get_one"}, decimal.NewFromInt(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported discount kind")
}
