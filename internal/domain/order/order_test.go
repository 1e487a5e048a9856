package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListFilter_Normalize(t *testing.T) {
	tests := []struct {
		name         string
		page, size   int
		wantPage     int
		wantPageSize int
	}{
		{"defaults applied", 0, 0, 1, 10},
		{"negative values fall back", -3, -1, 1, 10},
		{"valid values kept", 4, 25, 4, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ListFilter{Page: tt.page, PageSize: tt.size}
			f.Normalize()
			assert.Equal(t, tt.wantPage, f.Page)
			assert.Equal(t, tt.wantPageSize, f.PageSize)
		})
	}
}

func TestListFilter_TotalPages(t *testing.T) {
	f := ListFilter{PageSize: 10}

	assert.Equal(t, 0, f.TotalPages(0))
	assert.Equal(t, 1, f.TotalPages(1))
	assert.Equal(t, 1, f.TotalPages(10))
	assert.Equal(t, 2, f.TotalPages(11))
	assert.Equal(t, 5, f.TotalPages(42))
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, Status("Pending").Valid())
	assert.False(t, Status("").Valid())
}
