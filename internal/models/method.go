package models

import (
	"fmt"
	"strings"
)

// ExtractionMethod selects the text extraction backend.
type ExtractionMethod string

const (
	MethodNative  ExtractionMethod = "native"  // ledongthuc/pdf content streams
	MethodFitz    ExtractionMethod = "fitz"    // MuPDF text layer
	MethodDocconv ExtractionMethod = "docconv" // poppler pdftotext via docconv

	DefaultMethod = MethodNative
)

// methodAliases keeps the form values sent by the existing web client working.
var methodAliases = map[string]ExtractionMethod{
	"pdfplumber": MethodNative,
	"pypdf2":     MethodDocconv,
}

// ParseMethod resolves a form value to a backend. Empty selects the default.
func ParseMethod(s string) (ExtractionMethod, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultMethod, nil
	}
	if m, ok := methodAliases[s]; ok {
		return m, nil
	}
	switch m := ExtractionMethod(s); m {
	case MethodNative, MethodFitz, MethodDocconv:
		return m, nil
	}
	return "", fmt.Errorf("unsupported extraction method %q", s)
}
