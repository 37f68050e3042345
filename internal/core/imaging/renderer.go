package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// PageFunc receives one rendered page as PNG bytes. page is 1-based.
type PageFunc func(page, total int, pngData []byte) error

// PageRenderer rasterizes every page of a PDF.
type PageRenderer interface {
	RenderPages(ctx context.Context, path string, fn PageFunc) error
}

// FitzRenderer renders pages with MuPDF through go-fitz.
type FitzRenderer struct {
	DPI float64
}

func NewFitzRenderer(dpi float64) *FitzRenderer {
	if dpi <= 0 {
		dpi = 150
	}
	return &FitzRenderer{DPI: dpi}
}

// RenderPages streams pages to fn one at a time so only one raster is held in
// memory. The first error from fn stops rendering.
func (r *FitzRenderer) RenderPages(ctx context.Context, path string, fn PageFunc) error {
	doc, err := fitz.New(path)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(i, r.DPI)
		if err != nil {
			return fmt.Errorf("render page %d: %w", i+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}
		if err := fn(i+1, total, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}
