// Package pipeline_engine sequences the extraction, classification and
// persistence adapters for one uploaded document and reports progress as it
// goes.
package pipeline_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/models"
	"github.com/markdave123-py/pdfdesk/internal/observability"
)

const (
	// OCRThreshold is the trimmed text length under which OCR runs.
	OCRThreshold = 100

	ocrHeader = "\n\n=== OCR Results ===\n"

	imageStage = "image_extraction"
)

// Orchestrator runs the text and image pipelines. It holds no per-run state and
// is safe for concurrent use.
type Orchestrator struct {
	texts      map[models.ExtractionMethod]core.TextExtractor
	ocr        core.OCREngine
	images     core.ImageExtractor
	classifier core.Classifier
	writer     core.ProductWriter
	log        zerolog.Logger

	now       func() time.Time
	pageCount func(path string) (int, error)
}

func NewOrchestrator(
	texts map[models.ExtractionMethod]core.TextExtractor,
	ocr core.OCREngine,
	images core.ImageExtractor,
	classifier core.Classifier,
	writer core.ProductWriter,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		texts:      texts,
		ocr:        ocr,
		images:     images,
		classifier: classifier,
		writer:     writer,
		log:        log,
		now:        time.Now,
		pageCount:  api.PageCountFile,
	}
}

// RunText extracts the text of doc with the chosen backend and, when enabled and
// the text layer is nearly empty, appends OCR output.
//
// With OCR enabled the progress total is twice the page count so the bar stays
// monotone whether or not the fallback runs.
func (o *Orchestrator) RunText(ctx context.Context, doc models.Document, method models.ExtractionMethod, ocrEnabled bool, tracker core.ProgressReporter) (*models.TextResult, error) {
	extractor, ok := o.texts[method]
	if !ok {
		return nil, core.NewError(core.KindInvalidInput, "text", fmt.Sprintf("unsupported extraction method %q", method), nil)
	}
	ocrEnabled = ocrEnabled && o.ocr != nil
	scale := 1
	if ocrEnabled {
		scale = 2
	}
	log := observability.WithTask(o.log, tracker.ID()).With().Str("method", string(method)).Logger()

	expected := 0
	if n, err := o.pageCount(doc.Path); err == nil {
		expected = n
	}
	tracker.Update(0, expected*scale, fmt.Sprintf("Extracting text (%s)", method), nil)

	pages, err := extractor.ExtractPages(ctx, doc.Path, func(done, total int) {
		tracker.Update(done, total*scale, fmt.Sprintf("Extracting text (%s): page %d of %d", method, done, total), nil)
	})
	if err != nil {
		return nil, core.AsExtraction(extractor.Name(), err)
	}

	n := pageTotal(pages)
	res := &models.TextResult{
		Text:   joinPages(pages),
		Method: method,
		Pages:  n,
	}

	if !ocrEnabled || len(strings.TrimSpace(rawText(pages))) >= OCRThreshold {
		tracker.Update(n*scale, n*scale, "Text extraction complete", nil)
		return res, nil
	}

	log.Info().Int("pages", n).Msg("text layer below threshold, running OCR")
	tracker.Update(n, n*scale, "Running OCR fallback", nil)

	ocrPages, err := o.ocr.ExtractPages(ctx, doc.Path, func(done, total int) {
		tracker.Update(n+done, n+total, fmt.Sprintf("Running OCR: page %d of %d", done, total), nil)
	})
	if err != nil {
		return nil, core.AsExtraction("ocr", err)
	}

	res.Text += ocrHeader + joinPages(ocrPages)
	res.OCRUsed = true
	if m := pageTotal(ocrPages); m > res.Pages {
		res.Pages = m
	}
	tracker.Update(n*scale, n*scale, "Text extraction complete", nil)
	return res, nil
}

func pageMarker(p core.Page) string {
	if p.Through > p.Number {
		return fmt.Sprintf("\n--- Pages %d-%d ---\n", p.Number, p.Through)
	}
	return fmt.Sprintf("\n--- Page %d ---\n", p.Number)
}

func joinPages(pages []core.Page) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(pageMarker(p))
		b.WriteString(p.Text)
	}
	return b.String()
}

func rawText(pages []core.Page) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n")
}

func pageTotal(pages []core.Page) int {
	n := 0
	for _, p := range pages {
		n = max(n, p.Number, p.Through)
	}
	return n
}

// RunImages extracts every image of doc, classifies and persists each one, and
// builds a report when at least one product was saved. Failures on a single
// image skip that image; only extraction failures fail the run.
func (o *Orchestrator) RunImages(ctx context.Context, doc models.Document, tracker core.ProgressReporter) (*models.PipelineResult, error) {
	log := observability.WithTask(o.log, tracker.ID()).With().Str("document", doc.FileName).Logger()

	tracker.Update(0, 0, "Extracting images", nil)
	images, err := o.images.ExtractImages(ctx, doc.Path)
	if err != nil {
		return nil, core.AsExtraction(imageStage, err)
	}
	if len(images) == 0 {
		return nil, core.NewError(core.KindNoImages, imageStage, "no images found in document", nil)
	}

	total := len(images)
	res := &models.PipelineResult{
		TotalImages: total,
		Results:     make([]models.ImageOutcome, 0, total),
	}
	var records []models.ProductRecord

	start := o.now()
	for i := range images {
		if err := ctx.Err(); err != nil {
			for j := i; j < total; j++ {
				images[j].Release()
			}
			return nil, core.NewError(core.KindInternal, "images", "run cancelled", err)
		}

		var eta *int
		if i > 0 {
			elapsed := o.now().Sub(start).Seconds()
			secs := int(elapsed / float64(i) * float64(total-i))
			eta = &secs
		}
		tracker.Update(i, total, fmt.Sprintf("Analyzing image %d of %d (page %d)", i+1, total, images[i].Page), eta)

		outcome := o.processImage(ctx, &images[i], doc.FileName)
		if outcome.Status == models.StatusProcessed {
			res.Processed++
			records = append(records, *outcome.Record)
		} else {
			res.Skipped++
			log.Debug().Int("page", outcome.Page).Int("index", outcome.Index).Str("reason", outcome.Reason).Msg("image skipped")
		}
		res.Results = append(res.Results, outcome)
	}

	if len(records) > 0 {
		tracker.Update(total, total, "Generating report", nil)
		path, err := o.writer.BuildReport(ctx, records, doc.FileName)
		if err != nil {
			log.Error().Err(err).Msg("report generation failed")
		} else {
			res.ReportLocation = &path
		}
	}

	tracker.Update(total, total, fmt.Sprintf("Complete: %d processed, %d skipped", res.Processed, res.Skipped), nil)
	log.Info().Int("total", total).Int("processed", res.Processed).Int("skipped", res.Skipped).Msg("image pipeline finished")
	return res, nil
}

// processImage classifies and persists one image. The image buffer is released
// on return.
func (o *Orchestrator) processImage(ctx context.Context, img *models.ExtractedImage, source string) models.ImageOutcome {
	defer img.Release()

	outcome := models.ImageOutcome{
		Page:   img.Page,
		Index:  img.Index,
		Origin: img.Origin,
		Status: models.StatusSkipped,
	}

	cls, err := o.classifier.Classify(ctx, *img)
	if err != nil {
		outcome.Reason = reasonOf(err)
		return outcome
	}
	outcome.Classification = &cls
	if cls.IsUnknown() {
		outcome.Reason = "product not identified"
		return outcome
	}

	rec, err := o.writer.Save(ctx, *img, cls, source)
	if err != nil {
		outcome.Reason = "persistence failed: " + reasonOf(err)
		return outcome
	}
	if rec == nil {
		outcome.Reason = "product not persisted"
		return outcome
	}

	outcome.Status = models.StatusProcessed
	outcome.Record = rec
	return outcome
}

func reasonOf(err error) string {
	var pe *core.PipelineError
	if errors.As(err, &pe) && pe.Msg != "" {
		return pe.Msg
	}
	return err.Error()
}
