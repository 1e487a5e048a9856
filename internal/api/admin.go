package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curatedcrate/storefront/internal/domain/box"
	"github.com/curatedcrate/storefront/internal/domain/discount"
	"github.com/curatedcrate/storefront/internal/domain/order"
	"github.com/curatedcrate/storefront/internal/domain/product"
	"github.com/curatedcrate/storefront/internal/domain/user"
)

type paginationResponse struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
}

type adminOrderResponse struct {
	orderResponse
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
}

type adminOrderListResponse struct {
	Orders     []adminOrderResponse `json:"orders"`
	Pagination paginationResponse   `json:"pagination"`
}

// AdminListOrders returns a paginated order listing across all customers.
// Supports status filtering, free-text search over customer name/email, and
// exact lookup when the search term is an order id.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := order.ListFilter{
		Status:   q.Get("status"),
		Search:   strings.TrimSpace(q.Get("search")),
		Page:     queryInt(q.Get("page")),
		PageSize: queryInt(q.Get("limit")),
	}
	f.Normalize()

	if f.Status != "" && f.Status != "all" && !order.Status(f.Status).Valid() {
		h.respondError(w, r, http.StatusBadRequest, "unknown order status")
		return
	}

	orders, total, err := h.orders.List(r.Context(), f)
	if err != nil {
		h.respondInternal(w, r, err)
		return
	}

	out := make([]adminOrderResponse, len(orders))
	for i := range orders {
		out[i] = adminOrderResponse{
			orderResponse: toOrderResponse(&orders[i].Order),
			CustomerName:  orders[i].CustomerName,
			CustomerEmail: orders[i].CustomerEmail,
		}
	}
	h.respond(w, r, http.StatusOK, adminOrderListResponse{
		Orders: out,
		Pagination: paginationResponse{
			Page:       f.Page,
			TotalPages: f.TotalPages(total),
			Total:      total,
		},
	})
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// AdminUpdateOrderStatus transitions an order to a new status.
func (h *Handler) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	status := order.Status(req.Status)
	if !status.Valid() {
		h.respondError(w, r, http.StatusBadRequest, "unknown order status")
		return
	}

	id := r.PathValue("id")
	if err := h.orders.UpdateStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			h.respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		h.respondInternal(w, r, err)
		return
	}

	o, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, toOrderResponse(o))
}

type productRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Images      []string `json:"images,omitempty"`
	Category    string   `json:"category"`
	Stock       int      `json:"stock"`
	Active      *bool    `json:"active,omitempty"`
}

func (req *productRequest) validate() error {
	switch {
	case req.Name == "":
		return errors.New("name is required")
	case req.Price <= 0:
		return errors.New("price must be greater than 0")
	case !product.Category(req.Category).Valid():
		return errors.New("unknown category")
	case req.Stock < 0:
		return errors.New("stock must not be negative")
	}
	return nil
}

func (req *productRequest) apply(p *product.Product) {
	p.Name = req.Name
	p.Description = req.Description
	p.Price = decimal.NewFromFloat(req.Price)
	p.Images = req.Images
	p.Category = product.Category(req.Category)
	p.Stock = req.Stock
	p.Active = true
	if req.Active != nil {
		p.Active = *req.Active
	}
}

// AdminCreateProduct adds a catalog product.
func (h *Handler) AdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p := &product.Product{ID: uuid.New().String()}
	req.apply(p)
	if err := h.products.Create(r.Context(), p); err != nil {
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, h.toProductResponse(*p))
}

// AdminUpdateProduct replaces a catalog product's fields.
func (h *Handler) AdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p := &product.Product{ID: r.PathValue("id")}
	req.apply(p)
	if err := h.products.Update(r.Context(), p); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			h.respondError(w, r, http.StatusNotFound, "product not found")
			return
		}
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, h.toProductResponse(*p))
}

type boxRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	ProductIDs  []string `json:"productIds"`
	Active      *bool    `json:"active,omitempty"`
}

func (req *boxRequest) validate() error {
	switch {
	case req.Name == "":
		return errors.New("name is required")
	case req.Price <= 0:
		return errors.New("price must be greater than 0")
	case len(req.ProductIDs) == 0:
		return errors.New("productIds must not be empty")
	}
	return nil
}

func (req *boxRequest) apply(b *box.ThemedBox) {
	b.Name = req.Name
	b.Description = req.Description
	b.Price = decimal.NewFromFloat(req.Price)
	b.Active = true
	if req.Active != nil {
		b.Active = *req.Active
	}
}

// AdminCreateBox adds a themed box with its ordered product list.
func (h *Handler) AdminCreateBox(w http.ResponseWriter, r *http.Request) {
	var req boxRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	b := &box.ThemedBox{ID: uuid.New().String()}
	req.apply(b)
	if err := h.boxes.Create(r.Context(), b, req.ProductIDs); err != nil {
		h.respondBoxWriteError(w, r, err)
		return
	}

	created, err := h.boxes.GetByID(r.Context(), b.ID)
	if err != nil {
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, h.toBoxResponse(*created))
}

// AdminUpdateBox replaces a themed box and its product list.
func (h *Handler) AdminUpdateBox(w http.ResponseWriter, r *http.Request) {
	var req boxRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	b := &box.ThemedBox{ID: r.PathValue("id")}
	req.apply(b)
	if err := h.boxes.Update(r.Context(), b, req.ProductIDs); err != nil {
		h.respondBoxWriteError(w, r, err)
		return
	}

	updated, err := h.boxes.GetByID(r.Context(), b.ID)
	if err != nil {
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, h.toBoxResponse(*updated))
}

func (h *Handler) respondBoxWriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, box.ErrNotFound):
		h.respondError(w, r, http.StatusNotFound, "themed box not found")
	case errors.Is(err, box.ErrNoProducts):
		h.respondError(w, r, http.StatusBadRequest, "themed box must contain at least one product")
	case errors.Is(err, product.ErrNotFound):
		h.respondError(w, r, http.StatusBadRequest, "productIds reference a missing product")
	default:
		h.respondInternal(w, r, err)
	}
}

type createDiscountRequest struct {
	Code      string     `json:"code"`
	Kind      string     `json:"kind"`
	Value     float64    `json:"value"`
	MaxUses   int        `json:"maxUses,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Active    *bool      `json:"active,omitempty"`
}

type discountResponse struct {
	Code      string     `json:"code"`
	Kind      string     `json:"kind"`
	Value     float64    `json:"value"`
	MaxUses   int        `json:"maxUses"`
	Uses      int        `json:"uses"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
}

// AdminCreateDiscount registers a new discount code. Codes are normalized to
// upper case; duplicates answer 409.
func (h *Handler) AdminCreateDiscount(w http.ResponseWriter, r *http.Request) {
	var req createDiscountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := discount.Kind(req.Kind)
	switch {
	case strings.TrimSpace(req.Code) == "":
		h.respondError(w, r, http.StatusBadRequest, "code is required")
		return
	case !kind.Valid():
		h.respondError(w, r, http.StatusBadRequest, "unknown discount kind")
		return
	case kind != discount.KindFreeShipping && req.Value <= 0:
		h.respondError(w, r, http.StatusBadRequest, "value must be greater than 0")
		return
	case kind == discount.KindPercentage && req.Value > 100:
		h.respondError(w, r, http.StatusBadRequest, "percentage value must not exceed 100")
		return
	case req.MaxUses < 0:
		h.respondError(w, r, http.StatusBadRequest, "maxUses must not be negative")
		return
	}

	d := &discount.Discount{
		Code:      strings.ToUpper(strings.TrimSpace(req.Code)),
		Kind:      kind,
		Value:     decimal.NewFromFloat(req.Value),
		MaxUses:   req.MaxUses,
		ExpiresAt: req.ExpiresAt,
		Active:    true,
	}
	if req.Active != nil {
		d.Active = *req.Active
	}
	if err := h.discountRepo.Create(r.Context(), d); err != nil {
		if errors.Is(err, discount.ErrCodeExists) {
			h.respondError(w, r, http.StatusConflict, "discount code already exists")
			return
		}
		h.respondInternal(w, r, err)
		return
	}

	h.respond(w, r, http.StatusCreated, discountResponse{
		Code:      d.Code,
		Kind:      string(d.Kind),
		Value:     d.Value.InexactFloat64(),
		MaxUses:   d.MaxUses,
		Uses:      d.Uses,
		ExpiresAt: d.ExpiresAt,
		Active:    d.Active,
		CreatedAt: d.CreatedAt,
	})
}

type adminCustomerListResponse struct {
	Customers  []userResponse     `json:"customers"`
	Pagination paginationResponse `json:"pagination"`
}

// AdminListCustomers returns a paginated customer listing with optional
// name/email search.
func (h *Handler) AdminListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := user.ListFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Page:     queryInt(q.Get("page")),
		PageSize: queryInt(q.Get("limit")),
	}
	f.Normalize()

	users, total, err := h.users.List(r.Context(), f)
	if err != nil {
		h.respondInternal(w, r, err)
		return
	}

	out := make([]userResponse, len(users))
	for i := range users {
		out[i] = toUserResponse(&users[i])
	}
	totalPages := (total + f.PageSize - 1) / f.PageSize
	h.respond(w, r, http.StatusOK, adminCustomerListResponse{
		Customers: out,
		Pagination: paginationResponse{
			Page:       f.Page,
			TotalPages: totalPages,
			Total:      total,
		},
	})
}

// queryInt parses a query parameter as int, returning 0 on anything invalid
// so Normalize falls back to defaults.
func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
