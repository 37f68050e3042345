package handlers

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/core/progress"
	"github.com/markdave123-py/pdfdesk/internal/models"
	"github.com/markdave123-py/pdfdesk/internal/observability"
)

// Pipeline runs the document pipelines.
type Pipeline interface {
	RunText(ctx context.Context, doc models.Document, method models.ExtractionMethod, ocrEnabled bool, tracker core.ProgressReporter) (*models.TextResult, error)
	RunImages(ctx context.Context, doc models.Document, tracker core.ProgressReporter) (*models.PipelineResult, error)
}

type DocumentHandler struct {
	stager     Stager
	pipeline   Pipeline
	tasks      *progress.Store
	maxBytes   int64
	outputRoot string
	log        zerolog.Logger
}

func NewDocumentHandler(stager Stager, pipeline Pipeline, tasks *progress.Store, maxBytes int64, outputRoot string, log zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{
		stager:     stager,
		pipeline:   pipeline,
		tasks:      tasks,
		maxBytes:   maxBytes,
		outputRoot: outputRoot,
		log:        log,
	}
}

type extractTextResponse struct {
	Success  bool                    `json:"success"`
	Text     string                  `json:"text"`
	Filename string                  `json:"filename"`
	Method   models.ExtractionMethod `json:"method"`
	Pages    int                     `json:"pages"`
	OCRUsed  bool                    `json:"ocr_used"`
	TaskID   string                  `json:"task_id"`
}

// ExtractText handles POST /extract.
func (h *DocumentHandler) ExtractText(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r, h.maxBytes) {
		return
	}
	method, err := models.ParseMethod(r.FormValue("method"))
	if err != nil {
		writeError(w, core.NewError(core.KindInvalidInput, "extract", err.Error(), nil))
		return
	}
	useOCR := formBool(r, "use_ocr", true)

	doc, release, ok := stageField(w, r, h.stager, "file")
	defer release()
	if !ok {
		return
	}

	tracker := h.tasks.Begin(progress.KindText, r.FormValue("task_id"))
	defer tracker.Close()
	log := observability.WithTask(h.log, tracker.ID()).With().Str("document", doc.FileName).Logger()

	res, err := h.pipeline.RunText(r.Context(), *doc, method, useOCR, tracker)
	if err != nil {
		log.Error().Err(err).Msg("text extraction failed")
		writeError(w, err)
		return
	}

	log.Info().Str("method", string(res.Method)).Bool("ocr_used", res.OCRUsed).Int("pages", res.Pages).Msg("text extracted")
	writeJSON(w, http.StatusOK, extractTextResponse{
		Success:  true,
		Text:     res.Text,
		Filename: doc.FileName,
		Method:   res.Method,
		Pages:    res.Pages,
		OCRUsed:  res.OCRUsed,
		TaskID:   tracker.ID(),
	})
}

type extractImagesResponse struct {
	Success      bool                  `json:"success"`
	Filename     string                `json:"filename"`
	TaskID       string                `json:"task_id"`
	TotalImages  int                   `json:"total_images"`
	Processed    int                   `json:"processed"`
	Skipped      int                   `json:"skipped"`
	Results      []models.ImageOutcome `json:"results"`
	OutputFolder string                `json:"output_folder"`
	ExcelFile    *string               `json:"excel_file"`
}

// ExtractImages handles POST /extract-images.
func (h *DocumentHandler) ExtractImages(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r, h.maxBytes) {
		return
	}
	doc, release, ok := stageField(w, r, h.stager, "file")
	defer release()
	if !ok {
		return
	}

	tracker := h.tasks.Begin(progress.KindImages, r.FormValue("task_id"))
	defer tracker.Close()
	log := observability.WithTask(h.log, tracker.ID()).With().Str("document", doc.FileName).Logger()

	res, err := h.pipeline.RunImages(r.Context(), *doc, tracker)
	if err != nil {
		log.Error().Err(err).Msg("image pipeline failed")
		writeError(w, err)
		return
	}

	var excel *string
	if res.ReportLocation != nil {
		name := filepath.Base(*res.ReportLocation)
		excel = &name
	}
	writeJSON(w, http.StatusOK, extractImagesResponse{
		Success:      true,
		Filename:     doc.FileName,
		TaskID:       tracker.ID(),
		TotalImages:  res.TotalImages,
		Processed:    res.Processed,
		Skipped:      res.Skipped,
		Results:      res.Results,
		OutputFolder: h.outputRoot,
		ExcelFile:    excel,
	})
}
