package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/models"
)

const defaultSearchLimit = 10

// CatalogService indexes persisted products with a description embedding and
// answers semantic searches over them.
type CatalogService struct {
	catalog  core.CatalogClient
	embedder core.EmbeddingProvider
	log      zerolog.Logger
}

var _ core.ProductIndexer = (*CatalogService)(nil)

// NewCatalogService returns a service backed by catalog. embedder may be nil, in
// which case products are stored without embeddings and Search is unavailable.
func NewCatalogService(catalog core.CatalogClient, embedder core.EmbeddingProvider, log zerolog.Logger) *CatalogService {
	return &CatalogService{catalog: catalog, embedder: embedder, log: log}
}

// SearchEnabled reports whether Search can run.
func (s *CatalogService) SearchEnabled() bool {
	return s != nil && s.catalog != nil && s.embedder != nil
}

// Index upserts rec. An embedding failure still stores the product.
func (s *CatalogService) Index(ctx context.Context, rec *models.ProductRecord) error {
	var vec []float32
	if s.embedder != nil {
		vecs, err := s.embedder.EmbedTexts(ctx, []string{productText(rec)})
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("sku", rec.SKU).Msg("embed product description")
		case len(vecs) == 1:
			vec = vecs[0]
		}
	}
	if err := s.catalog.UpsertProduct(ctx, rec, vec); err != nil {
		return fmt.Errorf("index product: %w", err)
	}
	return nil
}

// Search returns the products nearest to the free-text query.
func (s *CatalogService) Search(ctx context.Context, query string, limit int) ([]models.ProductRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, core.NewError(core.KindInvalidInput, "search", "query is required", nil)
	}
	if !s.SearchEnabled() {
		return nil, core.NewError(core.KindNotFound, "search", "product search is not enabled", nil)
	}
	if limit <= 0 || limit > 100 {
		limit = defaultSearchLimit
	}

	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vecs))
	}

	products, err := s.catalog.SearchProducts(ctx, vecs[0], limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	if products == nil {
		products = []models.ProductRecord{}
	}
	return products, nil
}

// Get returns one indexed product or a KindNotFound error.
func (s *CatalogService) Get(ctx context.Context, sku string) (*models.ProductRecord, error) {
	if s == nil || s.catalog == nil {
		return nil, core.NewError(core.KindNotFound, "catalog", "product catalog is not enabled", nil)
	}
	p, err := s.catalog.GetProduct(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, core.NewError(core.KindNotFound, "catalog", "product not found", nil)
	}
	return p, nil
}

func productText(rec *models.ProductRecord) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s. %s", rec.Category, rec.SKU, rec.Description))
}
