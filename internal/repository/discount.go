package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curatedcrate/storefront/internal/domain/discount"
)

const (
	getDiscountByCodeSQL = `SELECT code, kind, value, max_uses, uses, expires_at, active, created_at
		FROM discounts WHERE code = UPPER($1) AND active`

	createDiscountSQL = `INSERT INTO discounts (code, kind, value, max_uses, expires_at, active)
		VALUES (UPPER($1), $2, $3, $4, $5, $6)
		RETURNING created_at`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode looks up an active discount by its upper-normalized code.
// Missing and inactive codes both yield discount.ErrNotFound.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, getDiscountByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding discount by code %q: %w", code, err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("finding discount by code %q: %w", code, err)
	}
	return &d, nil
}

// Create persists a new discount. Duplicate codes yield discount.ErrCodeExists.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	d.Code = strings.ToUpper(d.Code)
	err := r.pool.QueryRow(ctx, createDiscountSQL,
		d.Code, string(d.Kind), d.Value, d.MaxUses, d.ExpiresAt, d.Active,
	).Scan(&d.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return discount.ErrCodeExists
		}
		return fmt.Errorf("creating discount %q: %w", d.Code, err)
	}
	return nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d    discount.Discount
		kind string
	)
	err := row.Scan(&d.Code, &kind, &d.Value, &d.MaxUses, &d.Uses, &d.ExpiresAt, &d.Active, &d.CreatedAt)
	d.Kind = discount.Kind(kind)
	return d, err
}
