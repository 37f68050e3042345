package core

import (
	"context"

	"github.com/markdave123-py/pdfdesk/internal/models"
)

// Page is the text of one PDF page. Number is 1-based; Through is the last page
// covered when a backend cannot split its output per page (0 otherwise).
type Page struct {
	Number  int
	Through int
	Text    string
}

// PageFunc receives per-page progress from an extractor.
type PageFunc func(done, total int)

// Report calls f when it is set.
func (f PageFunc) Report(done, total int) {
	if f != nil {
		f(done, total)
	}
}

// TextExtractor pulls page-tagged text out of a PDF on disk.
type TextExtractor interface {
	Name() string
	ExtractPages(ctx context.Context, path string, progress PageFunc) ([]Page, error)
}

// OCREngine recognizes text on rendered pages. It is used as a fallback when
// the text layer is empty or too short.
type OCREngine interface {
	ExtractPages(ctx context.Context, path string, progress PageFunc) ([]Page, error)
}

// ImageExtractor yields the images of a PDF ordered by page, then discovery index.
type ImageExtractor interface {
	ExtractImages(ctx context.Context, path string) ([]models.ExtractedImage, error)
}
