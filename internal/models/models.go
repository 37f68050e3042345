package models

import (
	"time"
)

// Document is an uploaded PDF staged on local disk for the duration of one request.
type Document struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"` // sanitized base name of the upload
	Path        string    `json:"-"`         // staged temp file
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// ProgressSnapshot is the latest progress report for one task.
type ProgressSnapshot struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage int     `json:"percentage"`
	Message    string  `json:"message"`
	ETASeconds *int    `json:"eta_seconds,omitempty"`
	Timestamp  float64 `json:"timestamp"`
}

type ImageOrigin string

const (
	OriginEmbedded ImageOrigin = "embedded"
	OriginRendered ImageOrigin = "rendered"
)

// ExtractedImage is one image pulled out of a document, either an embedded
// image object or a full-page render.
type ExtractedImage struct {
	Page   int         `json:"page"`
	Index  int         `json:"index"`
	Data   []byte      `json:"-"`
	Ext    string      `json:"ext"` // png, jpg
	Origin ImageOrigin `json:"origin"`
}

// Release drops the image buffer once the image has been classified and persisted.
func (img *ExtractedImage) Release() {
	img.Data = nil
}

type Category string

const (
	CategoryGate             Category = "Gate"
	CategoryDoor             Category = "Door"
	CategoryFence            Category = "Fence"
	CategoryHandrail         Category = "Handrail"
	CategoryWindowProtection Category = "WindowProtection"
	CategoryUnknown          Category = "Unknown"
)

// Categories lists every known category except Unknown.
var Categories = []Category{
	CategoryGate,
	CategoryDoor,
	CategoryFence,
	CategoryHandrail,
	CategoryWindowProtection,
}

// ParseCategory maps free-form model output onto a known category.
func ParseCategory(s string) Category {
	norm := normalizeKey(s)
	for _, c := range Categories {
		if normalizeKey(string(c)) == norm {
			return c
		}
	}
	return CategoryUnknown
}

func normalizeKey(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b = append(b, c+('a'-'A'))
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b = append(b, c)
		}
	}
	return string(b)
}

// UnknownSKU marks a classification that must not be persisted.
const UnknownSKU = "Unknown"

// ClassificationResult is the product metadata the vision model assigns to one image.
type ClassificationResult struct {
	SKU            string   `json:"sku"`
	Category       Category `json:"category"`
	Description    string   `json:"description"`
	SilhouettePath string   `json:"silhouette_path"`
	PrimaryColor   string   `json:"primary_color"`
	SecondaryColor string   `json:"secondary_color"`
}

// DefaultClassification is returned whenever the classifier cannot produce a result.
func DefaultClassification() ClassificationResult {
	return ClassificationResult{
		SKU:            UnknownSKU,
		Category:       CategoryUnknown,
		PrimaryColor:   "#000000",
		SecondaryColor: "#FFFFFF",
	}
}

// IsUnknown reports whether the result is the do-not-persist sentinel.
func (c ClassificationResult) IsUnknown() bool {
	return c.SKU == "" || c.SKU == UnknownSKU
}

// ProductRecord is the persisted subset of a classification.
type ProductRecord struct {
	SKU            string    `json:"sku"`
	Category       Category  `json:"category"`
	Description    string    `json:"description"`
	SilhouettePath string    `json:"silhouette_path,omitempty"`
	PrimaryColor   string    `json:"primary_color"`
	SecondaryColor string    `json:"secondary_color"`
	ImagePath      string    `json:"image_path"`
	MetadataPath   string    `json:"metadata_path"`
	SourceDocument string    `json:"source_document"`
	Page           int       `json:"page"`
	CreatedAt      time.Time `json:"created_at"`
}

type OutcomeStatus string

const (
	StatusProcessed OutcomeStatus = "processed"
	StatusSkipped   OutcomeStatus = "skipped"
)

// ImageOutcome reports what happened to one extracted image.
type ImageOutcome struct {
	Page           int                   `json:"page"`
	Index          int                   `json:"index"`
	Origin         ImageOrigin           `json:"origin"`
	Status         OutcomeStatus         `json:"status"`
	Reason         string                `json:"reason,omitempty"`
	Classification *ClassificationResult `json:"classification,omitempty"`
	Record         *ProductRecord        `json:"record,omitempty"`
}

// PipelineResult aggregates one image pipeline run.
type PipelineResult struct {
	TotalImages    int            `json:"total_images"`
	Processed      int            `json:"processed"`
	Skipped        int            `json:"skipped"`
	Results        []ImageOutcome `json:"results"`
	ReportLocation *string        `json:"report_location"`
}

// TextResult is the outcome of one text pipeline run.
type TextResult struct {
	Text    string           `json:"text"`
	Method  ExtractionMethod `json:"method"`
	Pages   int              `json:"pages"`
	OCRUsed bool             `json:"ocr_used"`
}
