package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/curatedcrate/storefront/internal/auth"
	"github.com/curatedcrate/storefront/internal/domain/user"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateMeRequest struct {
	Name      string         `json:"name"`
	Phone     string         `json:"phone,omitempty"`
	Addresses []user.Address `json:"addresses"`
}

type userResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone,omitempty"`
	Role      string         `json:"role"`
	Addresses []user.Address `json:"addresses"`
	CreatedAt time.Time      `json:"createdAt"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// Register creates a new customer account and returns a bearer token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	switch {
	case req.Name == "":
		h.respondError(w, r, http.StatusBadRequest, "name is required")
		return
	case !strings.Contains(req.Email, "@"):
		h.respondError(w, r, http.StatusBadRequest, "a valid email is required")
		return
	case len(req.Password) < 8:
		h.respondError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.respondInternal(w, r, err)
		return
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         user.RoleUser,
	}
	if err := h.users.Create(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			h.respondError(w, r, http.StatusConflict, "email already registered")
			return
		}
		h.respondInternal(w, r, err)
		return
	}

	token, err := h.tokens.Issue(u)
	if err != nil {
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, authResponse{Token: token, User: toUserResponse(u)})
}

// Login verifies credentials and returns a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.respondError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.respondInternal(w, r, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		h.respondError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.Issue(u)
	if err != nil {
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, authResponse{Token: token, User: toUserResponse(u)})
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	u, err := h.users.GetByID(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.respondError(w, r, http.StatusNotFound, "user not found")
			return
		}
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, toUserResponse(u))
}

// UpdateMe replaces the authenticated user's profile fields and addresses.
// At most one address keeps the default flag.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		h.respondError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	for _, a := range req.Addresses {
		if a.Line1 == "" || a.City == "" || a.PostalCode == "" || a.Country == "" {
			h.respondError(w, r, http.StatusBadRequest, "address requires line1, city, postalCode and country")
			return
		}
	}

	id := auth.IdentityFromContext(r.Context())
	u, err := h.users.GetByID(r.Context(), id.UserID)
	if err != nil {
		h.respondInternal(w, r, err)
		return
	}

	u.Name = req.Name
	u.Phone = req.Phone
	u.Addresses = req.Addresses
	if err := h.users.UpdateProfile(r.Context(), u); err != nil {
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, toUserResponse(u))
}

func toUserResponse(u *user.User) userResponse {
	addrs := u.Addresses
	if addrs == nil {
		addrs = []user.Address{}
	}
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      string(u.Role),
		Addresses: addrs,
		CreatedAt: u.CreatedAt,
	}
}
