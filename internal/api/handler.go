// Package api exposes the storefront over HTTP. Every endpoint decodes an
// explicit request type, delegates to the domain layer, and answers with a
// uniform {success, data|message} JSON envelope.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/curatedcrate/storefront/internal/auth"
	"github.com/curatedcrate/storefront/internal/domain/box"
	"github.com/curatedcrate/storefront/internal/domain/cart"
	"github.com/curatedcrate/storefront/internal/domain/discount"
	"github.com/curatedcrate/storefront/internal/domain/order"
	"github.com/curatedcrate/storefront/internal/domain/product"
	"github.com/curatedcrate/storefront/internal/domain/user"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler implements all storefront endpoints, delegating business logic to
// the injected domain services and repositories.
type Handler struct {
	users        user.Repository
	tokens       *auth.Tokens
	products     product.Repository
	boxes        box.Repository
	carts        cart.Repository
	discounts    discount.Validator
	discountRepo discount.Repository
	orderService *order.Service
	orders       order.Repository
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	users user.Repository,
	tokens *auth.Tokens,
	products product.Repository,
	boxes box.Repository,
	carts cart.Repository,
	discounts discount.Validator,
	discountRepo discount.Repository,
	orderService *order.Service,
	orders order.Repository,
) *Handler {
	return &Handler{
		users:        users,
		tokens:       tokens,
		products:     products,
		boxes:        boxes,
		carts:        carts,
		discounts:    discounts,
		discountRepo: discountRepo,
		orderService: orderService,
		orders:       orders,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes registers every endpoint on a fresh ServeMux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Public catalog and auth.
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("GET /api/boxes", h.ListBoxes)
	mux.HandleFunc("GET /api/boxes/{id}", h.GetBox)

	// Authenticated storefront.
	mux.Handle("GET /api/auth/me", h.requireAuth(h.Me))
	mux.Handle("PUT /api/auth/me", h.requireAuth(h.UpdateMe))
	mux.Handle("GET /api/cart", h.requireAuth(h.GetCart))
	mux.Handle("PUT /api/cart", h.requireAuth(h.PutCart))
	mux.Handle("DELETE /api/cart", h.requireAuth(h.DeleteCart))
	mux.Handle("POST /api/discounts/validate", h.requireAuth(h.ValidateDiscount))
	mux.Handle("POST /api/orders", h.requireAuth(h.PlaceOrder))
	mux.Handle("GET /api/orders", h.requireAuth(h.ListMyOrders))
	mux.Handle("GET /api/orders/{id}", h.requireAuth(h.GetOrder))

	// Admin back-office.
	mux.Handle("GET /api/admin/orders", h.requireAdmin(h.AdminListOrders))
	mux.Handle("PATCH /api/admin/orders/{id}/status", h.requireAdmin(h.AdminUpdateOrderStatus))
	mux.Handle("POST /api/admin/products", h.requireAdmin(h.AdminCreateProduct))
	mux.Handle("PUT /api/admin/products/{id}", h.requireAdmin(h.AdminUpdateProduct))
	mux.Handle("POST /api/admin/boxes", h.requireAdmin(h.AdminCreateBox))
	mux.Handle("PUT /api/admin/boxes/{id}", h.requireAdmin(h.AdminUpdateBox))
	mux.Handle("POST /api/admin/discounts", h.requireAdmin(h.AdminCreateDiscount))
	mux.Handle("GET /api/admin/customers", h.requireAdmin(h.AdminListCustomers))

	return mux
}

// envelope is the uniform response body shape for every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// respond writes a success envelope with the given status and payload.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, r, status, envelope{Success: true, Data: data})
}

// respondError writes a failure envelope with the given status and message.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, envelope{Success: false, Message: message})
}

// respondInternal logs err and answers with an opaque 500.
func (h *Handler) respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	h.respondError(w, r, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

// decodeJSON decodes the request body into dst, rejecting unknown fields so
// malformed payloads fail at the boundary instead of reaching business logic.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// imageURL prefixes a stored image path with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if path == "" {
		return ""
	}
	return h.imageBaseURL + path
}

// imageURLs maps imageURL over a slice.
func (h *Handler) imageURLs(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = h.imageURL(p)
	}
	return out
}
