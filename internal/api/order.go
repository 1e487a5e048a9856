package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/curatedcrate/storefront/internal/auth"
	"github.com/curatedcrate/storefront/internal/domain/discount"
	"github.com/curatedcrate/storefront/internal/domain/order"
	"github.com/curatedcrate/storefront/internal/domain/user"
)

type placeOrderRequest struct {
	CartItems       []cartItemPayload     `json:"cartItems"`
	ShippingAddress order.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                `json:"paymentMethod"`
	DiscountCode    string                `json:"discountCode,omitempty"`
}

type orderItemResponse struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Image     string  `json:"image,omitempty"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

type orderResponse struct {
	ID              string                `json:"id"`
	Items           []orderItemResponse   `json:"items"`
	ShippingAddress order.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                `json:"paymentMethod"`
	Subtotal        float64               `json:"subtotal"`
	Discount        float64               `json:"discount"`
	DiscountCode    string                `json:"discountCode,omitempty"`
	Total           float64               `json:"total"`
	Status          string                `json:"status"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// PlaceOrder turns the submitted cart items into an order. Themed boxes are
// expanded inline, stock is decremented conditionally, and the whole placement
// commits as one transaction. An Idempotency-Key header makes retries safe:
// a replayed key answers 200 with the original order instead of 201.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	addr := req.ShippingAddress
	if addr.FullName == "" || addr.Line1 == "" || addr.City == "" || addr.PostalCode == "" || addr.Country == "" {
		h.respondError(w, r, http.StatusBadRequest, "shipping address requires fullName, line1, city, postalCode and country")
		return
	}
	if req.PaymentMethod == "" {
		h.respondError(w, r, http.StatusBadRequest, "paymentMethod is required")
		return
	}

	items, err := toCartItems(req.CartItems)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id := auth.IdentityFromContext(r.Context())
	result, err := h.orderService.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:          id.UserID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		DiscountCode:    req.DiscountCode,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.respondPlacementError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	h.respond(w, r, status, toOrderResponse(result.Order))
}

// respondPlacementError maps order placement failures to status codes.
func (h *Handler) respondPlacementError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		unknownItem       *order.UnknownItemError
		invalidQuantity   *order.InvalidQuantityError
		insufficientStock *order.InsufficientStockError
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		h.respondError(w, r, http.StatusBadRequest, "cart is empty")
	case errors.As(err, &unknownItem):
		h.respondError(w, r, http.StatusUnprocessableEntity, unknownItem.Error())
	case errors.As(err, &invalidQuantity):
		h.respondError(w, r, http.StatusUnprocessableEntity, invalidQuantity.Error())
	case errors.As(err, &insufficientStock):
		h.respondError(w, r, http.StatusConflict, insufficientStock.Error())
	case errors.Is(err, discount.ErrNotFound),
		errors.Is(err, discount.ErrExpired),
		errors.Is(err, discount.ErrUsageExceeded):
		h.respondDiscountError(w, r, err)
	default:
		h.respondInternal(w, r, err)
	}
}

// ListMyOrders returns the authenticated user's orders, newest first.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	orders, err := h.orders.ListByUser(r.Context(), id.UserID)
	if err != nil {
		h.respondInternal(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	h.respond(w, r, http.StatusOK, out)
}

// GetOrder returns a single order. Customers may only read their own orders;
// admins may read any. Foreign orders answer 404 rather than 403 to avoid
// leaking order ids.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			h.respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		h.respondInternal(w, r, err)
		return
	}

	id := auth.IdentityFromContext(r.Context())
	if o.UserID != id.UserID && id.Role != user.RoleAdmin {
		h.respondError(w, r, http.StatusNotFound, "order not found")
		return
	}
	h.respond(w, r, http.StatusOK, toOrderResponse(o))
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			UnitPrice: it.UnitPrice.InexactFloat64(),
			Quantity:  it.Quantity,
		}
	}
	return orderResponse{
		ID:              o.ID,
		Items:           items,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		Subtotal:        o.Subtotal.InexactFloat64(),
		Discount:        o.Discount.InexactFloat64(),
		DiscountCode:    o.DiscountCode,
		Total:           o.Total.InexactFloat64(),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
	}
}
