package extraction_engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/core/imaging"
)

var _ core.OCREngine = (*TesseractOCR)(nil)

// recognizer turns one PNG into text.
type recognizer interface {
	Recognize(pngData []byte) (string, error)
	Close() error
}

// TesseractOCR renders every page and runs tesseract over the raster.
type TesseractOCR struct {
	renderer      imaging.PageRenderer
	newRecognizer func() (recognizer, error)
}

func NewTesseractOCR(cfg *ExtractConfig) *TesseractOCR {
	var langs []string
	if cfg != nil {
		langs = cfg.OCRLanguages
	}
	return &TesseractOCR{
		renderer: imaging.NewFitzRenderer(cfg.dpi()),
		newRecognizer: func() (recognizer, error) {
			return newGosseractRecognizer(langs)
		},
	}
}

func (o *TesseractOCR) ExtractPages(ctx context.Context, path string, progress core.PageFunc) ([]core.Page, error) {
	rec, err := o.newRecognizer()
	if err != nil {
		return nil, core.NewError(core.KindExtraction, "ocr", "init tesseract", err)
	}
	defer rec.Close()

	var pages []core.Page
	err = o.renderer.RenderPages(ctx, path, func(page, total int, pngData []byte) error {
		text, err := rec.Recognize(pngData)
		if err != nil {
			return fmt.Errorf("recognize page %d: %w", page, err)
		}
		pages = append(pages, core.Page{Number: page, Text: strings.TrimSpace(text)})
		progress.Report(page, total)
		return nil
	})
	if err != nil {
		return nil, core.NewError(core.KindExtraction, "ocr", "ocr failed", err)
	}
	return pages, nil
}

// gosseractRecognizer reuses one tesseract client for every page of a run.
type gosseractRecognizer struct {
	client *gosseract.Client
}

func newGosseractRecognizer(langs []string) (*gosseractRecognizer, error) {
	c := gosseract.NewClient()
	if len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			c.Close()
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	return &gosseractRecognizer{client: c}, nil
}

func (g *gosseractRecognizer) Recognize(pngData []byte) (string, error) {
	if err := g.client.SetImageFromBytes(pngData); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	return g.client.Text()
}

func (g *gosseractRecognizer) Close() error {
	return g.client.Close()
}
