package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curatedcrate/storefront/internal/domain/user"
)

const (
	userColumns = `id, email, password_hash, name, phone, role, created_at, updated_at`

	insertUserSQL = `INSERT INTO users (id, email, password_hash, name, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`

	getUserByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	updateUserProfileSQL = `UPDATE users SET name = $2, phone = $3, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`

	deleteAddressesSQL = `DELETE FROM addresses WHERE user_id = $1`

	insertAddressSQL = `INSERT INTO addresses (id, user_id, full_name, line1, line2, city, state, postal_code, country, phone, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getAddressesSQL = `SELECT id, user_id, full_name, line1, line2, city, state, postal_code, country, phone, is_default
		FROM addresses WHERE user_id = ANY($1) ORDER BY is_default DESC, id`

	listUsersSQL = `SELECT ` + userColumns + ` FROM users
		WHERE role = 'user' AND ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	countUsersSQL = `SELECT count(*) FROM users
		WHERE role = 'user' AND ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create persists a new account. Duplicate emails yield user.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.pool.QueryRow(ctx, insertUserSQL,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, string(u.Role),
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}

// GetByEmail returns a user by email with addresses loaded.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, getUserByEmailSQL, email)
}

// GetByID returns a user by id with addresses loaded.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, getUserByIDSQL, id)
}

func (r *UserRepository) getOne(ctx context.Context, query, arg string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	if err := r.loadAddresses(ctx, []*user.User{&u}); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile replaces the user's profile fields and address list in one
// transaction. At most one address keeps the default flag: the first address
// marked default wins and the flag is cleared on the rest.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *user.User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update profile: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, updateUserProfileSQL, u.ID, u.Name, u.Phone).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrNotFound
		}
		return fmt.Errorf("updating profile for user %q: %w", u.ID, err)
	}

	if _, err := tx.Exec(ctx, deleteAddressesSQL, u.ID); err != nil {
		return fmt.Errorf("clearing addresses for user %q: %w", u.ID, err)
	}

	defaultSeen := false
	for i := range u.Addresses {
		a := &u.Addresses[i]
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.Default && defaultSeen {
			a.Default = false
		}
		if a.Default {
			defaultSeen = true
		}
		if _, err := tx.Exec(ctx, insertAddressSQL,
			a.ID, u.ID, a.FullName, a.Line1, a.Line2, a.City, a.State,
			a.PostalCode, a.Country, a.Phone, a.Default,
		); err != nil {
			return fmt.Errorf("inserting address for user %q: %w", u.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// List returns one page of customer accounts matching the filter with the
// total match count. Admin accounts are excluded.
func (r *UserRepository) List(ctx context.Context, f user.ListFilter) ([]user.User, int, error) {
	search := escapeLike(f.Search)

	var total int
	if err := r.pool.QueryRow(ctx, countUsersSQL, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	offset := (f.Page - 1) * f.PageSize
	rows, err := r.pool.Query(ctx, listUsersSQL, search, f.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	users, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}

	refs := make([]*user.User, len(users))
	for i := range users {
		refs[i] = &users[i]
	}
	if err := r.loadAddresses(ctx, refs); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// loadAddresses fetches saved addresses for the given users in one query.
func (r *UserRepository) loadAddresses(ctx context.Context, users []*user.User) error {
	if len(users) == 0 {
		return nil
	}

	ids := make([]string, len(users))
	byID := make(map[string]*user.User, len(users))
	for i, u := range users {
		ids[i] = u.ID
		byID[u.ID] = u
	}

	rows, err := r.pool.Query(ctx, getAddressesSQL, ids)
	if err != nil {
		return fmt.Errorf("loading addresses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID string
			a      user.Address
		)
		if err := rows.Scan(&a.ID, &userID, &a.FullName, &a.Line1, &a.Line2, &a.City,
			&a.State, &a.PostalCode, &a.Country, &a.Phone, &a.Default); err != nil {
			return fmt.Errorf("scanning address: %w", err)
		}
		u := byID[userID]
		u.Addresses = append(u.Addresses, a)
	}
	return rows.Err()
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u    user.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &role, &u.CreatedAt, &u.UpdatedAt)
	u.Role = user.Role(role)
	return u, err
}
