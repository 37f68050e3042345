package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/models"
)

func TestParseClassification(t *testing.T) {
	raw := "```json\n" + `{
		"sku": " GT-104 ",
		"category": "window protection",
		"description": "Double swing gate with scroll top.",
		"silhouette_path": "M0 0 L100 0 L100 100 Z",
		"primary_color": "1a1a1a",
		"secondary_color": "#c0c0c0"
	}` + "\n```"

	res, err := ParseClassification(raw)
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationResult{
		SKU:            "GT-104",
		Category:       models.CategoryWindowProtection,
		Description:    "Double swing gate with scroll top.",
		SilhouettePath: "M0 0 L100 0 L100 100 Z",
		PrimaryColor:   "#1A1A1A",
		SecondaryColor: "#C0C0C0",
	}, res)
}

func TestParseClassificationDefaultsPerField(t *testing.T) {
	res, err := ParseClassification(`{"sku": "unknown", "category": "Boat", "primary_color": "red"}`)
	require.NoError(t, err)
	assert.Equal(t, models.UnknownSKU, res.SKU)
	assert.True(t, res.IsUnknown())
	assert.Equal(t, models.CategoryUnknown, res.Category)
	assert.Equal(t, "#000000", res.PrimaryColor)
	assert.Equal(t, "#FFFFFF", res.SecondaryColor)

	res, err = ParseClassification(`{"category": "Gate"}`)
	require.NoError(t, err)
	assert.Equal(t, models.UnknownSKU, res.SKU)
	assert.Equal(t, models.CategoryGate, res.Category)
}

func TestParseClassificationGarbage(t *testing.T) {
	res, err := ParseClassification("I think this is a gate")
	require.Error(t, err)
	assert.Equal(t, core.KindClassification, core.KindOf(err))
	assert.Equal(t, models.DefaultClassification(), res)
}

func TestDisabledClassifier(t *testing.T) {
	res, err := DisabledClassifier{}.Classify(context.Background(), models.ExtractedImage{Data: []byte{1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, core.KindClassification, core.KindOf(err))
	assert.True(t, res.IsUnknown())
}

func TestConstructorsRequireAPIKey(t *testing.T) {
	_, err := NewGeminiClassifier(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewGeminiEmbedder(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestImageFormat(t *testing.T) {
	assert.Equal(t, "jpeg", imageFormat("JPG"))
	assert.Equal(t, "png", imageFormat(""))
	assert.Equal(t, "webp", imageFormat("webp"))
}
