package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curatedcrate/storefront/internal/domain/box"
	"github.com/curatedcrate/storefront/internal/domain/product"
)

const (
	listBoxesSQL = `SELECT id, name, description, price, active, created_at, updated_at
		FROM themed_boxes WHERE active ORDER BY name`

	getBoxByIDSQL = `SELECT id, name, description, price, active, created_at, updated_at
		FROM themed_boxes WHERE id = $1`

	boxProductsSQL = `SELECT p.id, p.name, p.description, p.price, p.images, p.category,
			p.stock, p.active, p.created_at, p.updated_at, bp.box_id
		FROM themed_box_products bp
		JOIN products p ON p.id = bp.product_id
		WHERE bp.box_id = ANY($1)
		ORDER BY bp.box_id, bp.position`

	insertBoxSQL = `INSERT INTO themed_boxes (id, name, description, price, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	updateBoxSQL = `UPDATE themed_boxes
		SET name = $2, description = $3, price = $4, active = $5, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`

	deleteBoxProductsSQL = `DELETE FROM themed_box_products WHERE box_id = $1`

	insertBoxProductSQL = `INSERT INTO themed_box_products (box_id, product_id, position)
		VALUES ($1, $2, $3)`
)

var _ box.Repository = (*BoxRepository)(nil)

// BoxRepository implements box.Repository backed by PostgreSQL.
type BoxRepository struct {
	pool *pgxpool.Pool
}

// NewBoxRepository returns a BoxRepository that uses the given pool.
func NewBoxRepository(pool *pgxpool.Pool) *BoxRepository {
	return &BoxRepository{pool: pool}
}

// List returns all active themed boxes with their product lists resolved.
func (r *BoxRepository) List(ctx context.Context) ([]box.ThemedBox, error) {
	rows, err := r.pool.Query(ctx, listBoxesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing themed boxes: %w", err)
	}
	boxes, err := pgx.CollectRows(rows, scanBox)
	if err != nil {
		return nil, fmt.Errorf("listing themed boxes: %w", err)
	}
	if len(boxes) == 0 {
		return boxes, nil
	}

	ids := make([]string, len(boxes))
	byID := make(map[string]*box.ThemedBox, len(boxes))
	for i := range boxes {
		ids[i] = boxes[i].ID
		byID[boxes[i].ID] = &boxes[i]
	}
	if err := r.loadProducts(ctx, ids, func(boxID string, p product.Product) {
		b := byID[boxID]
		b.Products = append(b.Products, p)
	}); err != nil {
		return nil, err
	}
	return boxes, nil
}

// GetByID returns a themed box with its ordered product list resolved.
func (r *BoxRepository) GetByID(ctx context.Context, id string) (*box.ThemedBox, error) {
	rows, err := r.pool.Query(ctx, getBoxByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting themed box %q: %w", id, err)
	}

	b, err := pgx.CollectExactlyOneRow(rows, scanBox)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, box.ErrNotFound
		}
		return nil, fmt.Errorf("getting themed box %q: %w", id, err)
	}

	if err := r.loadProducts(ctx, []string{b.ID}, func(_ string, p product.Product) {
		b.Products = append(b.Products, p)
	}); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create persists a new themed box with its product list. An empty product
// list is rejected with box.ErrNoProducts.
func (r *BoxRepository) Create(ctx context.Context, b *box.ThemedBox, productIDs []string) error {
	if len(productIDs) == 0 {
		return box.ErrNoProducts
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create box: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, insertBoxSQL,
		b.ID, b.Name, b.Description, b.Price, b.Active,
	).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("creating themed box %q: %w", b.ID, err)
	}

	if err := insertBoxProducts(ctx, tx, b.ID, productIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update replaces a themed box's fields and product list. An empty product
// list is rejected with box.ErrNoProducts.
func (r *BoxRepository) Update(ctx context.Context, b *box.ThemedBox, productIDs []string) error {
	if len(productIDs) == 0 {
		return box.ErrNoProducts
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update box: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, updateBoxSQL,
		b.ID, b.Name, b.Description, b.Price, b.Active,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return box.ErrNotFound
		}
		return fmt.Errorf("updating themed box %q: %w", b.ID, err)
	}

	if _, err := tx.Exec(ctx, deleteBoxProductsSQL, b.ID); err != nil {
		return fmt.Errorf("clearing box products for %q: %w", b.ID, err)
	}
	if err := insertBoxProducts(ctx, tx, b.ID, productIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertBoxProducts(ctx context.Context, tx pgx.Tx, boxID string, productIDs []string) error {
	for i, pid := range productIDs {
		if _, err := tx.Exec(ctx, insertBoxProductSQL, boxID, pid, i); err != nil {
			return fmt.Errorf("adding product %q to box %q: %w", pid, boxID, err)
		}
	}
	return nil
}

// loadProducts fetches the contained products for the given box ids, in
// stored position order, and hands each to collect.
func (r *BoxRepository) loadProducts(ctx context.Context, boxIDs []string, collect func(boxID string, p product.Product)) error {
	rows, err := r.pool.Query(ctx, boxProductsSQL, boxIDs)
	if err != nil {
		return fmt.Errorf("loading box products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p        product.Product
			category string
			boxID    string
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Images, &category,
			&p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt, &boxID,
		); err != nil {
			return fmt.Errorf("scanning box product: %w", err)
		}
		p.Category = product.Category(category)
		collect(boxID, p)
	}
	return rows.Err()
}

func scanBox(row pgx.CollectableRow) (box.ThemedBox, error) {
	var b box.ThemedBox
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Price, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}
