package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/pdfdesk/internal/models"
)

// Catalog looks up indexed products.
type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]models.ProductRecord, error)
	Get(ctx context.Context, sku string) (*models.ProductRecord, error)
}

type CatalogHandler struct {
	catalog Catalog
}

func NewCatalogHandler(catalog Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Search handles GET /products/search?q=&limit=.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	products, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products, "count": len(products)})
}

// Get handles GET /products/{sku}.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
