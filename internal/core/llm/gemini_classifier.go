package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/models"
)

const classifyStage = "classify"

var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

const classifySystemPrompt = `You catalogue architectural metalwork products from catalogue pages.
Respond with a single JSON object and nothing else.`

const classifyPrompt = `Identify the product shown in this image and return JSON with these keys:
"sku": the product code printed next to the product, or "Unknown" if none is visible or the image is not a product,
"category": one of Gate, Door, Fence, Handrail, WindowProtection, Unknown,
"description": one short sentence describing the product,
"silhouette_path": an SVG path (d attribute, 100x100 viewBox) tracing the product outline,
"primary_color": dominant color as #RRGGBB,
"secondary_color": second color as #RRGGBB.`

// GeminiClassifier implements core.Classifier with a Gemini vision model.
type GeminiClassifier struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClassifier requires an explicit API key; there is no fallback.
func NewGeminiClassifier(ctx context.Context, apiKey, modelName string) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiClassifier{client: cl, modelName: modelName}, nil
}

func (g *GeminiClassifier) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiClassifier) Classify(ctx context.Context, img models.ExtractedImage) (models.ClassificationResult, error) {
	if len(img.Data) == 0 {
		return models.DefaultClassification(), core.NewError(core.KindClassification, classifyStage, "empty image", nil)
	}

	m := g.client.GenerativeModel(g.modelName)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(classifySystemPrompt)},
	}
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0.1)

	resp, err := m.GenerateContent(ctx, genai.ImageData(imageFormat(img.Ext), img.Data), genai.Text(classifyPrompt))
	if err != nil {
		return models.DefaultClassification(), core.NewError(core.KindClassification, classifyStage, "gemini generate", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return models.DefaultClassification(), core.NewError(core.KindClassification, classifyStage, "empty response", nil)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return ParseClassification(b.String())
}

// imageFormat maps file extensions to the subtype genai expects in image/<format>.
func imageFormat(ext string) string {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg":
		return "jpeg"
	case "":
		return "png"
	default:
		return strings.ToLower(ext)
	}
}

var _ core.Classifier = (*GeminiClassifier)(nil)

// DisabledClassifier stands in when no API key is configured. Every image is
// reported as a classification failure.
type DisabledClassifier struct{}

func (DisabledClassifier) Classify(ctx context.Context, img models.ExtractedImage) (models.ClassificationResult, error) {
	return models.DefaultClassification(), core.NewError(core.KindClassification, classifyStage, "classifier not configured", ErrMissingAPIKey)
}

var _ core.Classifier = DisabledClassifier{}
