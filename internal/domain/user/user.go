package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering with an email that is
	// already in use.
	ErrEmailTaken = errors.New("email already registered")
)

// Role distinguishes storefront customers from back-office admins.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Address is a saved shipping address. At most one address per user carries
// Default; writes enforce this by clearing the flag on all others.
type Address struct {
	ID         string `json:"id,omitempty"`
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
	Default    bool   `json:"isDefault"`
}

// User is an account holder. PasswordHash is a bcrypt hash and never leaves
// the repository/auth layers.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Phone        string
	Role         Role
	Addresses    []Address
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ListFilter narrows admin customer listings.
type ListFilter struct {
	// Search matches case-insensitively against name and email.
	Search   string
	Page     int
	PageSize int
}

// Normalize applies the default page/pageSize of 1/10 to out-of-range values.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 10
	}
}

// Repository defines persistence operations for user accounts.
// Create returns ErrEmailTaken on a duplicate email. UpdateProfile replaces
// profile fields and the address list, keeping at most one default address.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, u *User) error
	List(ctx context.Context, f ListFilter) ([]User, int, error)
}
