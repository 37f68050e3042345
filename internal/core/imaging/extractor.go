// Package imaging pulls images out of PDFs: embedded image objects first, full
// page renders when a document has none.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"
	"golang.org/x/image/tiff"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/models"
)

const stage = "image_extraction"

var _ core.ImageExtractor = (*PDFImageExtractor)(nil)

// EmbeddedSource lists the image objects embedded in a PDF.
type EmbeddedSource interface {
	Embedded(ctx context.Context, path string) ([]models.ExtractedImage, error)
}

// PDFImageExtractor implements core.ImageExtractor.
type PDFImageExtractor struct {
	embedded EmbeddedSource
	renderer PageRenderer
	log      zerolog.Logger
}

func NewPDFImageExtractor(dpi float64, log zerolog.Logger) *PDFImageExtractor {
	return &PDFImageExtractor{
		embedded: NewPdfcpuSource(),
		renderer: NewFitzRenderer(dpi),
		log:      log,
	}
}

// ExtractImages returns the embedded images ordered by page then index. A
// document without embedded images (or one pdfcpu cannot parse) falls back
// to one rendered image per page.
func (e *PDFImageExtractor) ExtractImages(ctx context.Context, path string) ([]models.ExtractedImage, error) {
	imgs, err := e.embedded.Embedded(ctx, path)
	switch {
	case err != nil:
		e.log.Warn().Err(err).Msg("embedded image extraction failed, rendering pages instead")
	case len(imgs) > 0:
		SortImages(imgs)
		return imgs, nil
	}

	var rendered []models.ExtractedImage
	err = e.renderer.RenderPages(ctx, path, func(page, total int, pngData []byte) error {
		rendered = append(rendered, models.ExtractedImage{
			Page:   page,
			Index:  0,
			Data:   pngData,
			Ext:    "png",
			Origin: models.OriginRendered,
		})
		return nil
	})
	if err != nil {
		return nil, core.NewError(core.KindExtraction, stage, "render pages", err)
	}
	return rendered, nil
}

// SortImages orders images by page ascending, then index ascending.
func SortImages(imgs []models.ExtractedImage) {
	sort.SliceStable(imgs, func(i, j int) bool {
		if imgs[i].Page != imgs[j].Page {
			return imgs[i].Page < imgs[j].Page
		}
		return imgs[i].Index < imgs[j].Index
	})
}

// PdfcpuSource reads raw image objects with pdfcpu.
type PdfcpuSource struct {
	conf *model.Configuration
}

func NewPdfcpuSource() *PdfcpuSource {
	return &PdfcpuSource{conf: model.NewDefaultConfiguration()}
}

type rawImage struct {
	page, objNr int
	fileType    string
	data        []byte
}

func (s *PdfcpuSource) Embedded(ctx context.Context, path string) ([]models.ExtractedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	perPage, err := api.ExtractImagesRaw(f, nil, s.conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu extract images: %w", err)
	}

	var raws []rawImage
	for _, objs := range perPage {
		for objNr, img := range objs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			data, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("read image obj %d on page %d: %w", objNr, img.PageNr, err)
			}
			raws = append(raws, rawImage{page: img.PageNr, objNr: objNr, fileType: img.FileType, data: data})
		}
	}
	return indexRawImages(raws), nil
}

// indexRawImages assigns discovery indexes per page in object-number order,
// which is stable across runs unlike map iteration.
func indexRawImages(raws []rawImage) []models.ExtractedImage {
	sort.Slice(raws, func(i, j int) bool {
		if raws[i].page != raws[j].page {
			return raws[i].page < raws[j].page
		}
		return raws[i].objNr < raws[j].objNr
	})

	out := make([]models.ExtractedImage, 0, len(raws))
	idx, lastPage := 0, -1
	for _, r := range raws {
		if r.page != lastPage {
			idx, lastPage = 0, r.page
		}
		data, ext := normalizeImage(r.data, r.fileType)
		out = append(out, models.ExtractedImage{
			Page:   r.page,
			Index:  idx,
			Data:   data,
			Ext:    ext,
			Origin: models.OriginEmbedded,
		})
		idx++
	}
	return out
}

// normalizeImage converts TIFF output (pdfcpu's choice for CMYK and some
// decoded streams) to PNG so every image can go to the vision model.
func normalizeImage(data []byte, fileType string) ([]byte, string) {
	ext := strings.ToLower(strings.TrimPrefix(fileType, "."))
	switch ext {
	case "jpeg":
		return data, "jpg"
	case "tif", "tiff":
		img, err := tiff.Decode(bytes.NewReader(data))
		if err != nil {
			return data, ext
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return data, ext
		}
		return buf.Bytes(), "png"
	}
	return data, ext
}
