package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/models"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type classificationWire struct {
	SKU            string `json:"sku"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	SilhouettePath string `json:"silhouette_path"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
}

// ParseClassification decodes the model's JSON answer. Unparseable output
// yields the default classification and a KindClassification error; missing
// or malformed fields fall back to their defaults individually.
func ParseClassification(raw string) (models.ClassificationResult, error) {
	def := models.DefaultClassification()

	var w classificationWire
	if err := json.Unmarshal([]byte(stripFences(raw)), &w); err != nil {
		return def, core.NewError(core.KindClassification, classifyStage, "decode model response", err)
	}

	res := models.ClassificationResult{
		SKU:            strings.TrimSpace(w.SKU),
		Category:       models.ParseCategory(w.Category),
		Description:    strings.TrimSpace(w.Description),
		SilhouettePath: strings.TrimSpace(w.SilhouettePath),
		PrimaryColor:   normalizeColor(w.PrimaryColor, def.PrimaryColor),
		SecondaryColor: normalizeColor(w.SecondaryColor, def.SecondaryColor),
	}
	if res.SKU == "" || strings.EqualFold(res.SKU, models.UnknownSKU) {
		res.SKU = models.UnknownSKU
	}
	return res, nil
}

func normalizeColor(c, def string) string {
	c = strings.TrimSpace(c)
	if !strings.HasPrefix(c, "#") {
		c = "#" + c
	}
	if !hexColor.MatchString(c) {
		return def
	}
	return strings.ToUpper(c)
}

// stripFences removes a ```json ... ``` wrapper some models add despite the
// JSON response type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
