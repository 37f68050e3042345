package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ReportOpener resolves report names under the output root.
type ReportOpener interface {
	OpenReport(ctx context.Context, name string) (io.ReadCloser, error)
}

type ReportHandler struct {
	reports ReportOpener
	log     zerolog.Logger
}

func NewReportHandler(reports ReportOpener, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, log: log}
}

// Download handles GET /download-report/*.
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	// chi matches on RawPath when the request carried escapes the decoded Path
	// cannot represent (such as %2F); only then is the param still encoded.
	name := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		var err error
		if name, err = url.PathUnescape(name); err != nil {
			writeErrorStatus(w, http.StatusBadRequest, "invalid report name")
			return
		}
	}

	rc, err := h.reports.OpenReport(r.Context(), name)
	if err != nil {
		h.log.Warn().Err(err).Str("report", name).Msg("report download rejected")
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(name)}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn().Err(err).Str("report", name).Msg("report stream interrupted")
	}
}
