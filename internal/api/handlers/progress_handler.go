package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/pdfdesk/internal/core/progress"
)

type ProgressHandler struct {
	tasks *progress.Store
}

func NewProgressHandler(tasks *progress.Store) *ProgressHandler {
	return &ProgressHandler{tasks: tasks}
}

// GetProgress handles GET /progress/{task_id}.
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	snap, err := h.tasks.Get(chi.URLParam(r, "task_id"))
	if errors.Is(err, progress.ErrTaskNotFound) {
		writeErrorStatus(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
