package extraction_engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/markdave123-py/pdfdesk/internal/core"
)

var _ core.TextExtractor = (*NativeExtractor)(nil)

// NativeExtractor reads the text layer with ledongthuc/pdf, page by page.
type NativeExtractor struct{}

func NewNativeExtractor() *NativeExtractor { return &NativeExtractor{} }

func (e *NativeExtractor) Name() string { return "native" }

func (e *NativeExtractor) ExtractPages(ctx context.Context, path string, progress core.PageFunc) (pages []core.Page, err error) {
	// The parser panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = core.NewError(core.KindExtraction, e.Name(), "malformed pdf", fmt.Errorf("%v", r))
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, core.NewError(core.KindExtraction, e.Name(), "open pdf", err)
	}
	defer f.Close()

	total := r.NumPage()
	pages = make([]core.Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, core.NewError(core.KindExtraction, e.Name(), "cancelled", err)
		}

		var text string
		page := r.Page(i)
		if !page.V.IsNull() {
			t, err := page.GetPlainText(nil)
			if err != nil {
				return nil, core.NewError(core.KindExtraction, e.Name(), fmt.Sprintf("page %d", i), err)
			}
			text = strings.TrimSpace(t)
		}

		pages = append(pages, core.Page{Number: i, Text: text})
		progress.Report(i, total)
	}
	return pages, nil
}
