package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/pdfdesk/internal/config"
	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/models"
)

// CatalogClient stores persisted products and their description embeddings in
// Postgres with pgvector.
type CatalogClient struct {
	db  *sql.DB
	dim int
}

var _ core.CatalogClient = (*CatalogClient)(nil)

func NewCatalogClient(ctx context.Context, cfg *config.Config) (*CatalogClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("catalog client configuration is nil")
	}
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &CatalogClient{db: db, dim: cfg.EmbedDim}, nil
}

// buildDSN appends CA verification parameters when SSL_CERT_PATH is set.
func buildDSN(cfg *config.Config) (string, error) {
	if cfg.DatabaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is empty")
	}
	if cfg.SslCertPath == "" {
		return cfg.DatabaseURL, nil
	}
	if _, err := os.Stat(cfg.SslCertPath); err != nil {
		return "", fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
	}

	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", cfg.SslCertPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *CatalogClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// UpsertProduct inserts or replaces the row for rec.SKU. A nil embedding, or one
// whose length does not match the column, keeps the stored one.
func (c *CatalogClient) UpsertProduct(ctx context.Context, rec *models.ProductRecord, embedding []float32) error {
	if rec == nil {
		return errors.New("nil product record")
	}
	const q = `
		INSERT INTO products
			(sku, category, description, silhouette_path, primary_color, secondary_color,
			 image_path, metadata_path, source_document, page, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		ON CONFLICT (sku) DO UPDATE SET
			category        = EXCLUDED.category,
			description     = EXCLUDED.description,
			silhouette_path = EXCLUDED.silhouette_path,
			primary_color   = EXCLUDED.primary_color,
			secondary_color = EXCLUDED.secondary_color,
			image_path      = EXCLUDED.image_path,
			metadata_path   = EXCLUDED.metadata_path,
			source_document = EXCLUDED.source_document,
			page            = EXCLUDED.page,
			embedding       = COALESCE(EXCLUDED.embedding, products.embedding),
			updated_at      = now()
	`
	vec := vectorArg(embedding, c.dim)
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := c.db.ExecContext(ctx, q,
		rec.SKU, string(rec.Category), rec.Description, rec.SilhouettePath, rec.PrimaryColor, rec.SecondaryColor,
		rec.ImagePath, rec.MetadataPath, rec.SourceDocument, rec.Page, vec, created)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", rec.SKU, err)
	}
	return nil
}

// vectorArg converts an embedding to a query argument, nil when it cannot be
// stored in a vector(dim) column.
func vectorArg(embedding []float32, dim int) any {
	if len(embedding) == 0 || (dim > 0 && len(embedding) != dim) {
		return nil
	}
	return pgvector.NewVector(embedding)
}

const productColumns = `sku, category, description, silhouette_path, primary_color, secondary_color,
	image_path, metadata_path, source_document, page, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (models.ProductRecord, error) {
	var (
		p        models.ProductRecord
		category string
	)
	err := row.Scan(&p.SKU, &category, &p.Description, &p.SilhouettePath, &p.PrimaryColor, &p.SecondaryColor,
		&p.ImagePath, &p.MetadataPath, &p.SourceDocument, &p.Page, &p.CreatedAt)
	p.Category = models.Category(category)
	return p, err
}

// GetProduct returns nil, nil when the sku is not indexed.
func (c *CatalogClient) GetProduct(ctx context.Context, sku string) (*models.ProductRecord, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE sku = $1`
	p, err := scanProduct(c.db.QueryRowContext(ctx, q, sku))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchProducts returns the products whose description embedding is nearest
// to queryVec.
func (c *CatalogClient) SearchProducts(ctx context.Context, queryVec []float32, limit int) ([]models.ProductRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	if c.dim > 0 && len(queryVec) != c.dim {
		return nil, fmt.Errorf("query embedding has %d dimensions, catalog expects %d", len(queryVec), c.dim)
	}
	q := `SELECT ` + productColumns + `
		FROM products
		WHERE embedding IS NOT NULL
		ORDER BY embedding <-> $1
		LIMIT $2`
	rows, err := c.db.QueryContext(ctx, q, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProductRecord
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
