package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/curatedcrate/storefront/internal/auth"
	"github.com/curatedcrate/storefront/internal/domain/cart"
)

type cartItemPayload struct {
	Type        string `json:"type"`
	ProductID   string `json:"productId,omitempty"`
	ThemedBoxID string `json:"themedBoxId,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
}

type putCartRequest struct {
	Items []cartItemPayload `json:"items"`
}

type cartResponse struct {
	Items     []cartItemPayload `json:"items"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

// GetCart returns the authenticated user's cart. A user without a cart gets
// an empty one rather than a 404.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	c, err := h.carts.Get(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			h.respond(w, r, http.StatusOK, cartResponse{Items: []cartItemPayload{}})
			return
		}
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, toCartResponse(c))
}

// PutCart replaces the authenticated user's cart wholesale.
func (h *Handler) PutCart(w http.ResponseWriter, r *http.Request) {
	var req putCartRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := toCartItems(req.Items)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id := auth.IdentityFromContext(r.Context())
	c := &cart.Cart{UserID: id.UserID, Items: items}
	if err := h.carts.Put(r.Context(), c); err != nil {
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, toCartResponse(c))
}

// DeleteCart removes the authenticated user's cart entirely.
func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if err := h.carts.Delete(r.Context(), id.UserID); err != nil {
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, cartResponse{Items: []cartItemPayload{}})
}

// toCartItems validates and converts wire items to domain cart items.
func toCartItems(payload []cartItemPayload) ([]cart.Item, error) {
	items := make([]cart.Item, 0, len(payload))
	for _, it := range payload {
		switch cart.ItemKind(it.Type) {
		case cart.KindProduct:
			if it.ProductID == "" {
				return nil, errors.New("product items require productId")
			}
			if it.Quantity <= 0 {
				return nil, errors.New("product items require a positive quantity")
			}
			items = append(items, cart.Item{
				Kind:      cart.KindProduct,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
			})
		case cart.KindThemedBox:
			if it.ThemedBoxID == "" {
				return nil, errors.New("themed box items require themedBoxId")
			}
			items = append(items, cart.Item{
				Kind:     cart.KindThemedBox,
				BoxID:    it.ThemedBoxID,
				Quantity: 1,
			})
		default:
			return nil, errors.Errorf("unknown cart item type: %q", it.Type)
		}
	}
	return items, nil
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := make([]cartItemPayload, len(c.Items))
	for i, it := range c.Items {
		items[i] = cartItemPayload{
			Type:        string(it.Kind),
			ProductID:   it.ProductID,
			ThemedBoxID: it.BoxID,
		}
		if it.Kind == cart.KindProduct {
			items[i].Quantity = it.Quantity
		}
	}
	return cartResponse{Items: items, UpdatedAt: c.UpdatedAt}
}
