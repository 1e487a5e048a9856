package api

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/curatedcrate/storefront/internal/domain/discount"
)

type validateDiscountRequest struct {
	Code         string  `json:"code"`
	CartSubtotal float64 `json:"cartSubtotal"`
}

type discountApprovalResponse struct {
	Code   string  `json:"code"`
	Kind   string  `json:"kind"`
	Amount float64 `json:"amount"`
}

// ValidateDiscount checks a code against a cart subtotal without consuming a
// use. The authoritative check runs again inside order placement.
func (h *Handler) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	var req validateDiscountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		h.respondError(w, r, http.StatusBadRequest, "code is required")
		return
	}
	if req.CartSubtotal < 0 {
		h.respondError(w, r, http.StatusBadRequest, "cartSubtotal must not be negative")
		return
	}

	subtotal := decimal.NewFromFloat(req.CartSubtotal)
	approval, err := h.discounts.Validate(r.Context(), req.Code, subtotal)
	if err != nil {
		h.respondDiscountError(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, discountApprovalResponse{
		Code:   approval.Code,
		Kind:   string(approval.Kind),
		Amount: approval.Amount.InexactFloat64(),
	})
}

// respondDiscountError maps discount validation failures to status codes.
// Shared by discount validation and order placement.
func (h *Handler) respondDiscountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, discount.ErrNotFound):
		h.respondError(w, r, http.StatusNotFound, "discount code not found")
	case errors.Is(err, discount.ErrExpired):
		h.respondError(w, r, http.StatusUnprocessableEntity, "discount code expired")
	case errors.Is(err, discount.ErrUsageExceeded):
		h.respondError(w, r, http.StatusUnprocessableEntity, "discount code usage limit reached")
	default:
		h.respondInternal(w, r, err)
	}
}
