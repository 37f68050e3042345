package extraction_engine

import (
	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/models"
)

// ExtractConfig tunes the extraction backends.
//
// RenderDPI:    resolution pages are rendered at before OCR.
// OCRLanguages: tesseract language codes, e.g. "eng", "deu".
type ExtractConfig struct {
	RenderDPI    int
	OCRLanguages []string
}

func (c *ExtractConfig) dpi() float64 {
	if c == nil || c.RenderDPI <= 0 {
		return 150
	}
	return float64(c.RenderDPI)
}

// Registry resolves an extraction method to its backend.
type Registry map[models.ExtractionMethod]core.TextExtractor

// NewRegistry wires every supported text backend.
func NewRegistry() Registry {
	return Registry{
		models.MethodNative:  NewNativeExtractor(),
		models.MethodFitz:    NewFitzExtractor(),
		models.MethodDocconv: NewDocconvExtractor(),
	}
}
