package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curatedcrate/storefront/internal/domain/discount"
	"github.com/curatedcrate/storefront/internal/domain/order"
)

const (
	orderColumns = `id, user_id, shipping_address, payment_method, subtotal, discount,
		discount_code, total, status, idempotency_key, created_at, updated_at`

	decrementStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`

	incrementDiscountUsesSQL = `UPDATE discounts SET uses = uses + 1
		WHERE code = $1 AND active AND (max_uses = 0 OR uses < max_uses)`

	insertOrderSQL = `INSERT INTO orders (id, user_id, shipping_address, payment_method,
			subtotal, discount, discount_code, total, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, position, product_id, name, image, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	findByIdempotencyKeySQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 AND idempotency_key = $2`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC`

	listOrdersSQL = `SELECT o.id, o.user_id, o.shipping_address, o.payment_method, o.subtotal,
			o.discount, o.discount_code, o.total, o.status, o.idempotency_key,
			o.created_at, o.updated_at, u.name, u.email
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE ($1 = '' OR o.status = $1)
		  AND ($2 = '' OR u.name ILIKE '%' || $2 || '%' OR u.email ILIKE '%' || $2 || '%' OR o.id = $3)
		ORDER BY o.created_at DESC
		LIMIT $4 OFFSET $5`

	countOrdersSQL = `SELECT count(*)
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE ($1 = '' OR o.status = $1)
		  AND ($2 = '' OR u.name ILIKE '%' || $2 || '%' OR u.email ILIKE '%' || $2 || '%' OR o.id = $3)`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	getOrderItemsSQL = `SELECT oi.order_id, oi.product_id,
			COALESCE(p.name, oi.name), COALESCE(p.images[1], oi.image),
			oi.unit_price, oi.quantity
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.position`
)

var (
	_ order.Store      = (*OrderRepository)(nil)
	_ order.Repository = (*OrderRepository)(nil)
)

// OrderRepository implements both sides of order persistence backed by
// PostgreSQL: the transactional placement Store and the read Repository.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Place commits an order in a single transaction: conditional stock
// decrements, the order and line item inserts, the discount use increment,
// and the wholesale cart deletion. A decrement that would drive stock
// negative aborts the transaction with an InsufficientStockError; an
// over-redeemed discount aborts it with discount.ErrUsageExceeded.
func (r *OrderRepository) Place(ctx context.Context, o *order.Order, decrements []order.StockDecrement) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin place order: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, d := range decrements {
		tag, err := tx.Exec(ctx, decrementStockSQL, d.ProductID, d.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock for product %q: %w", d.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			return &order.InsufficientStockError{ProductID: d.ProductID, Requested: d.Quantity}
		}
	}

	if o.DiscountCode != "" {
		tag, err := tx.Exec(ctx, incrementDiscountUsesSQL, o.DiscountCode)
		if err != nil {
			return fmt.Errorf("incrementing uses for discount %q: %w", o.DiscountCode, err)
		}
		if tag.RowsAffected() == 0 {
			return discount.ErrUsageExceeded
		}
	}

	shippingJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	err = tx.QueryRow(ctx, insertOrderSQL,
		o.ID, o.UserID, shippingJSON, o.PaymentMethod,
		o.Subtotal, o.Discount, o.DiscountCode, o.Total, string(o.Status), o.IdempotencyKey,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		// A concurrent placement with the same key can commit between the
		// caller's idempotency lookup and this insert.
		if o.IdempotencyKey != "" && isUniqueViolation(err) {
			return order.ErrIdempotencyConflict
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for i, item := range o.Items {
		if _, err := tx.Exec(ctx, insertOrderItemSQL,
			o.ID, i, item.ProductID, item.Name, item.Image, item.UnitPrice, item.Quantity,
		); err != nil {
			return fmt.Errorf("creating order item %d for order %q: %w", i, o.ID, err)
		}
	}

	if _, err := tx.Exec(ctx, deleteCartSQL, o.UserID); err != nil {
		return fmt.Errorf("clearing cart for user %q: %w", o.UserID, err)
	}

	return tx.Commit(ctx)
}

// FindByIdempotencyKey returns the order previously created by userID with
// the given key, or order.ErrNotFound.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, findByIdempotencyKeySQL, userID, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup for user %q: %w", userID, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("idempotency lookup for user %q: %w", userID, err)
	}
	if err := r.loadItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByID returns a single order with its line items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	if err := r.loadItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first, with line items.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}

	refs := make([]*order.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.loadItems(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

// List returns one page of orders matching the filter together with the total
// match count, newest first, joined with the owning customer's name and email.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.CustomerOrder, int, error) {
	status := f.Status
	if status == "all" {
		status = ""
	}

	// Exact order-id match only participates when the search term is a UUID.
	var searchID *string
	if _, err := uuid.Parse(f.Search); err == nil {
		searchID = &f.Search
	}
	search := escapeLike(f.Search)

	var total int
	if err := r.pool.QueryRow(ctx, countOrdersSQL, status, search, searchID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	offset := (f.Page - 1) * f.PageSize
	rows, err := r.pool.Query(ctx, listOrdersSQL, status, search, searchID, f.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanCustomerOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}

	refs := make([]*order.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i].Order
	}
	if err := r.loadItems(ctx, refs); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus transitions an order's status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating status for order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// loadItems fetches line items for the given orders in one query. Name and
// image are resolved to the current product where it still exists, falling
// back to the purchase-time snapshot; unit price always stays the snapshot.
func (r *OrderRepository) loadItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.pool.Query(ctx, getOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    order.LineItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Image, &item.UnitPrice, &item.Quantity); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		o := byID[orderID]
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		shippingJSON []byte
		status       string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &shippingJSON, &o.PaymentMethod, &o.Subtotal, &o.Discount,
		&o.DiscountCode, &o.Total, &status, &o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address for order %q: %w", o.ID, err)
	}
	return o, nil
}

func scanCustomerOrder(row pgx.CollectableRow) (order.CustomerOrder, error) {
	var (
		co           order.CustomerOrder
		shippingJSON []byte
		status       string
	)
	err := row.Scan(
		&co.ID, &co.UserID, &shippingJSON, &co.PaymentMethod, &co.Subtotal, &co.Discount,
		&co.DiscountCode, &co.Total, &status, &co.IdempotencyKey, &co.CreatedAt, &co.UpdatedAt,
		&co.CustomerName, &co.CustomerEmail,
	)
	if err != nil {
		return co, err
	}
	co.Status = order.Status(status)
	if err := json.Unmarshal(shippingJSON, &co.ShippingAddress); err != nil {
		return co, fmt.Errorf("unmarshaling shipping address for order %q: %w", co.ID, err)
	}
	return co, nil
}
