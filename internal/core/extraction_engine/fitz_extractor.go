package extraction_engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/markdave123-py/pdfdesk/internal/core"
)

var _ core.TextExtractor = (*FitzExtractor)(nil)

// FitzExtractor reads the text layer through MuPDF.
type FitzExtractor struct{}

func NewFitzExtractor() *FitzExtractor { return &FitzExtractor{} }

func (e *FitzExtractor) Name() string { return "fitz" }

func (e *FitzExtractor) ExtractPages(ctx context.Context, path string, progress core.PageFunc) ([]core.Page, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, core.NewError(core.KindExtraction, e.Name(), "open pdf", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	pages := make([]core.Page, 0, total)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, core.NewError(core.KindExtraction, e.Name(), "cancelled", err)
		}
		text, err := doc.Text(i)
		if err != nil {
			return nil, core.NewError(core.KindExtraction, e.Name(), fmt.Sprintf("page %d", i+1), err)
		}
		pages = append(pages, core.Page{Number: i + 1, Text: strings.TrimSpace(text)})
		progress.Report(i+1, total)
	}
	return pages, nil
}
