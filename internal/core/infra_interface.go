package core

import (
	"context"
	"io"

	"github.com/markdave123-py/pdfdesk/internal/models"
)

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// CatalogClient indexes persisted products so they can be searched later.
type CatalogClient interface {
	UpsertProduct(ctx context.Context, rec *models.ProductRecord, embedding []float32) error
	GetProduct(ctx context.Context, sku string) (*models.ProductRecord, error)
	SearchProducts(ctx context.Context, queryVec []float32, limit int) ([]models.ProductRecord, error)
	Close() error
}

// ProductIndexer receives every committed ProductRecord.
type ProductIndexer interface {
	Index(ctx context.Context, rec *models.ProductRecord) error
}

// ProductWriter persists classified images and renders the run report.
type ProductWriter interface {
	Save(ctx context.Context, img models.ExtractedImage, cls models.ClassificationResult, source string) (*models.ProductRecord, error)
	BuildReport(ctx context.Context, records []models.ProductRecord, source string) (string, error)
}

// ProgressReporter is the per-run handle the orchestrator writes progress through.
type ProgressReporter interface {
	ID() string
	Update(current, total int, message string, etaSeconds *int)
}
