package core

import (
	"context"

	"github.com/markdave123-py/pdfdesk/internal/models"
)

type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Classifier maps one image to product metadata. On failure it returns
// models.DefaultClassification together with a KindClassification error.
type Classifier interface {
	Classify(ctx context.Context, img models.ExtractedImage) (models.ClassificationResult, error)
}
