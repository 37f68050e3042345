package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/markdave123-py/pdfdesk/internal/models"
)

// Stager copies an uploaded file to local disk. release removes the copy.
type Stager interface {
	Stage(ctx context.Context, file io.Reader, header *multipart.FileHeader) (doc *models.Document, release func(), err error)
}

const multipartMemory = 8 << 20

// parseUpload caps the body and parses the multipart form. It writes the error
// response itself and reports whether the caller may continue.
func parseUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorStatus(w, http.StatusRequestEntityTooLarge, "file too large")
			return false
		}
		writeErrorStatus(w, http.StatusBadRequest, "invalid multipart form")
		return false
	}
	return true
}

// stageField stages the single file under field. The returned release is never
// nil.
func stageField(w http.ResponseWriter, r *http.Request, stager Stager, field string) (*models.Document, func(), bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "no file provided")
		return nil, func() {}, false
	}
	defer file.Close()

	doc, release, err := stager.Stage(r.Context(), file, header)
	if err != nil {
		writeError(w, err)
		return nil, func() {}, false
	}
	return doc, release, true
}

// stageAll stages every file under field, in upload order.
func stageAll(w http.ResponseWriter, r *http.Request, stager Stager, field string) ([]*models.Document, func(), bool) {
	var (
		docs     []*models.Document
		releases []func()
	)
	releaseAll := func() {
		for _, rel := range releases {
			rel()
		}
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		writeErrorStatus(w, http.StatusBadRequest, "no files provided")
		return nil, releaseAll, false
	}
	for _, header := range r.MultipartForm.File[field] {
		f, err := header.Open()
		if err != nil {
			writeErrorStatus(w, http.StatusBadRequest, "unreadable upload")
			return nil, releaseAll, false
		}
		doc, release, err := stager.Stage(r.Context(), f, header)
		f.Close()
		if err != nil {
			writeError(w, err)
			return nil, releaseAll, false
		}
		docs = append(docs, doc)
		releases = append(releases, release)
	}
	return docs, releaseAll, true
}

// formBool parses checkbox-style values; absent means def.
func formBool(r *http.Request, key string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(r.FormValue(key)))
	switch v {
	case "":
		return def
	case "1", "true", "on", "yes":
		return true
	case "0", "false", "off", "no":
		return false
	}
	return def
}

func formInt(r *http.Request, key string, def int) (int, bool) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
