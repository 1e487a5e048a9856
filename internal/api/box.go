package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/curatedcrate/storefront/internal/domain/box"
)

type boxResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Price       float64           `json:"price"`
	Products    []productResponse `json:"products"`
	Active      bool              `json:"active"`
}

// ListBoxes returns all active themed boxes with their contents resolved.
func (h *Handler) ListBoxes(w http.ResponseWriter, r *http.Request) {
	boxes, err := h.boxes.List(r.Context())
	if err != nil {
		h.respondInternal(w, r, err)
		return
	}

	out := make([]boxResponse, len(boxes))
	for i, b := range boxes {
		out[i] = h.toBoxResponse(b)
	}
	h.respond(w, r, http.StatusOK, out)
}

// GetBox returns a single themed box by id.
func (h *Handler) GetBox(w http.ResponseWriter, r *http.Request) {
	b, err := h.boxes.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, box.ErrNotFound) {
			h.respondError(w, r, http.StatusNotFound, "themed box not found")
			return
		}
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, h.toBoxResponse(*b))
}

func (h *Handler) toBoxResponse(b box.ThemedBox) boxResponse {
	products := make([]productResponse, len(b.Products))
	for i, p := range b.Products {
		products[i] = h.toProductResponse(p)
	}
	return boxResponse{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Price:       b.Price.InexactFloat64(),
		Products:    products,
		Active:      b.Active,
	}
}
