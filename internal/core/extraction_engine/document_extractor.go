package extraction_engine

import (
	"context"
	"os"
	"strconv"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/pdfdesk/internal/core"
)

var _ core.TextExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor implements core.TextExtractor using sajari/docconv, which
// shells out to poppler's pdftotext.
type DocconvExtractor struct{}

func NewDocconvExtractor() *DocconvExtractor { return &DocconvExtractor{} }

func (e *DocconvExtractor) Name() string { return "docconv" }

// ExtractPages converts the whole document in one call. pdftotext runs with
// page breaks disabled, so the output is returned as a single Page spanning
// every page reported by pdfinfo.
func (e *DocconvExtractor) ExtractPages(ctx context.Context, path string, progress core.PageFunc) ([]core.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewError(core.KindExtraction, e.Name(), "open document", err)
	}
	defer f.Close()

	if err := ctx.Err(); err != nil {
		return nil, core.NewError(core.KindExtraction, e.Name(), "cancelled", err)
	}

	body, meta, err := docconv.ConvertPDF(f)
	if err != nil {
		return nil, core.NewError(core.KindExtraction, e.Name(), "pdftotext conversion failed", err)
	}

	pages := 1
	if n, err := strconv.Atoi(strings.TrimSpace(meta["Pages"])); err == nil && n > 0 {
		pages = n
	}
	progress.Report(pages, pages)

	page := core.Page{Number: 1, Text: strings.TrimSpace(body)}
	if pages > 1 {
		page.Through = pages
	}
	return []core.Page{page}, nil
}
