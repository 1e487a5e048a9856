package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/curatedcrate/storefront/internal/domain/product"
)

type productResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Images      []string `json:"images"`
	Category    string   `json:"category"`
	Stock       int      `json:"stock"`
	Active      bool     `json:"active"`
}

// ListProducts returns the storefront catalog, optionally filtered by the
// `category` query parameter.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := product.ListFilter{}
	if c := r.URL.Query().Get("category"); c != "" {
		cat := product.Category(c)
		if !cat.Valid() {
			h.respondError(w, r, http.StatusBadRequest, "unknown category")
			return
		}
		filter.Category = cat
	}

	products, err := h.products.List(r.Context(), filter)
	if err != nil {
		h.respondInternal(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = h.toProductResponse(p)
	}
	h.respond(w, r, http.StatusOK, out)
}

// GetProduct returns a single product by id.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			h.respondError(w, r, http.StatusNotFound, "product not found")
			return
		}
		h.respondInternal(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, h.toProductResponse(*p))
}

func (h *Handler) toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Images:      h.imageURLs(p.Images),
		Category:    string(p.Category),
		Stock:       p.Stock,
		Active:      p.Active,
	}
}
