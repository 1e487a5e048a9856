package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curatedcrate/storefront/internal/domain/cart"
)

const (
	getCartSQL = `SELECT user_id, updated_at FROM carts WHERE user_id = $1`

	getCartItemsSQL = `SELECT item_type, product_id, themed_box_id, quantity
		FROM cart_items WHERE user_id = $1 ORDER BY position`

	upsertCartSQL = `INSERT INTO carts (user_id, updated_at) VALUES ($1, now())
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()`

	deleteCartItemsSQL = `DELETE FROM cart_items WHERE user_id = $1`

	insertCartItemSQL = `INSERT INTO cart_items (user_id, position, item_type, product_id, themed_box_id, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	deleteCartSQL = `DELETE FROM carts WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the user's cart with items in insertion order.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	c := &cart.Cart{}
	err := r.pool.QueryRow(ctx, getCartSQL, userID).Scan(&c.UserID, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}

	rows, err := r.pool.Query(ctx, getCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart items for user %q: %w", userID, err)
	}
	c.Items, err = pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("getting cart items for user %q: %w", userID, err)
	}
	return c, nil
}

// Put replaces the user's cart wholesale.
func (r *CartRepository) Put(ctx context.Context, c *cart.Cart) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin put cart: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, upsertCartSQL, c.UserID); err != nil {
		return fmt.Errorf("upserting cart for user %q: %w", c.UserID, err)
	}
	if _, err := tx.Exec(ctx, deleteCartItemsSQL, c.UserID); err != nil {
		return fmt.Errorf("clearing cart items for user %q: %w", c.UserID, err)
	}

	for i, item := range c.Items {
		if _, err := tx.Exec(ctx, insertCartItemSQL,
			c.UserID, i, string(item.Kind),
			nullableID(item.ProductID), nullableID(item.BoxID), item.Quantity,
		); err != nil {
			return fmt.Errorf("inserting cart item %d for user %q: %w", i, c.UserID, err)
		}
	}
	return tx.Commit(ctx)
}

// Delete removes the user's cart document entirely. Cart items cascade.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, deleteCartSQL, userID); err != nil {
		return fmt.Errorf("deleting cart for user %q: %w", userID, err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var (
		item      cart.Item
		kind      string
		productID *string
		boxID     *string
	)
	err := row.Scan(&kind, &productID, &boxID, &item.Quantity)
	item.Kind = cart.ItemKind(kind)
	if productID != nil {
		item.ProductID = *productID
	}
	if boxID != nil {
		item.BoxID = *boxID
	}
	return item, err
}

// nullableID maps "" to NULL for optional UUID columns.
func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
