package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/markdave123-py/pdfdesk/internal/core"
)

type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: status})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindInvalidInput, core.KindNoImages:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindPathTraversal:
		return http.StatusForbidden
	case core.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error", "code"}. Internal causes are never
// exposed, only the message of the tagged error.
func writeError(w http.ResponseWriter, err error) {
	var pe *core.PipelineError
	if !errors.As(err, &pe) {
		writeErrorStatus(w, http.StatusInternalServerError, "internal server error")
		return
	}
	msg := pe.Msg
	if pe.Kind == core.KindExtraction && pe.Stage != "" {
		msg = pe.Stage + ": " + msg
	}
	writeErrorStatus(w, statusFor(pe.Kind), msg)
}
