package handlers

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/pdfdesk/internal/observability"
	"github.com/markdave123-py/pdfdesk/internal/services"
)

// PDFTools is the editing toolbox behind /tools.
type PDFTools interface {
	Merge(ctx context.Context, paths []string) ([]byte, error)
	Split(ctx context.Context, path, baseName string, span int) ([]byte, error)
	SelectPages(ctx context.Context, path, selection string) ([]byte, error)
	DeletePages(ctx context.Context, path, selection string) ([]byte, error)
	Rotate(ctx context.Context, path string, degrees int, selection string) ([]byte, error)
	Watermark(ctx context.Context, path, text string, opacity float64, selection string) ([]byte, error)
	Encrypt(ctx context.Context, path, userPW, ownerPW string) ([]byte, error)
	Decrypt(ctx context.Context, path, password string) ([]byte, error)
	SetMetadata(ctx context.Context, path string, props map[string]string) ([]byte, error)
	ReadMetadata(ctx context.Context, path string) (*services.Metadata, error)
	Optimize(ctx context.Context, path string) ([]byte, error)
	Reorder(ctx context.Context, path, order string) ([]byte, error)
	InsertBlankPages(ctx context.Context, path, selection string) ([]byte, error)
	ImageWatermark(ctx context.Context, path string, img io.Reader, imgName string, opacity float64, selection string) ([]byte, error)
	ImagesToPDF(ctx context.Context, images []io.Reader) ([]byte, error)
	ToImages(ctx context.Context, path, baseName string) ([]byte, error)
	SetPermissions(ctx context.Context, path, ownerPW, userPW string, perms services.Permissions) ([]byte, error)
}

type ToolsHandler struct {
	stager   Stager
	tools    PDFTools
	maxBytes int64
	log      zerolog.Logger
}

func NewToolsHandler(stager Stager, tools PDFTools, maxBytes int64, log zerolog.Logger) *ToolsHandler {
	return &ToolsHandler{stager: stager, tools: tools, maxBytes: maxBytes, log: log}
}

// metadataFields are the form fields accepted by set-metadata, mapped to PDF
// info dictionary keys.
var metadataFields = map[string]string{
	"title":    "Title",
	"author":   "Author",
	"subject":  "Subject",
	"keywords": "Keywords",
	"creator":  "Creator",
}

// Run handles POST /tools/{op}.
func (h *ToolsHandler) Run(w http.ResponseWriter, r *http.Request) {
	op := chi.URLParam(r, "op")
	if !parseUpload(w, r, h.maxBytes) {
		return
	}
	ctx := r.Context()
	log := observability.WithOperation(h.log, "tool_"+op)

	if op == "merge" {
		docs, release, ok := stageAll(w, r, h.stager, "files")
		defer release()
		if !ok {
			return
		}
		paths := make([]string, len(docs))
		for i, d := range docs {
			paths[i] = d.Path
		}
		out, err := h.tools.Merge(ctx, paths)
		h.respond(w, log, out, err, "merged.pdf", "application/pdf")
		return
	}
	if op == "images-to-pdf" {
		images, closeAll, ok := openImages(w, r, "images")
		defer closeAll()
		if !ok {
			return
		}
		out, err := h.tools.ImagesToPDF(ctx, images)
		h.respond(w, log, out, err, "images.pdf", "application/pdf")
		return
	}

	doc, release, ok := stageField(w, r, h.stager, "file")
	defer release()
	if !ok {
		return
	}
	stem := strings.TrimSuffix(doc.FileName, filepath.Ext(doc.FileName))
	pages := r.FormValue("pages")

	var (
		out []byte
		err error
	)
	switch op {
	case "split":
		span, valid := formInt(r, "span", 1)
		if !valid {
			writeErrorStatus(w, http.StatusBadRequest, "span must be a number")
			return
		}
		out, err = h.tools.Split(ctx, doc.Path, doc.FileName, span)
		h.respond(w, log, out, err, stem+"_split.zip", "application/zip")
		return
	case "select":
		out, err = h.tools.SelectPages(ctx, doc.Path, pages)
	case "delete":
		out, err = h.tools.DeletePages(ctx, doc.Path, pages)
	case "rotate":
		degrees, valid := formInt(r, "degrees", 90)
		if !valid {
			writeErrorStatus(w, http.StatusBadRequest, "degrees must be a number")
			return
		}
		out, err = h.tools.Rotate(ctx, doc.Path, degrees, pages)
	case "to-images":
		out, err = h.tools.ToImages(ctx, doc.Path, doc.FileName)
		h.respond(w, log, out, err, stem+"_pages.zip", "application/zip")
		return
	case "reorder":
		out, err = h.tools.Reorder(ctx, doc.Path, r.FormValue("order"))
	case "insert-blank":
		out, err = h.tools.InsertBlankPages(ctx, doc.Path, pages)
	case "watermark":
		out, err = h.tools.Watermark(ctx, doc.Path, r.FormValue("text"), formOpacity(r), pages)
	case "image-watermark":
		img, header, ferr := r.FormFile("image")
		if ferr != nil {
			writeErrorStatus(w, http.StatusBadRequest, "no watermark image provided")
			return
		}
		defer img.Close()
		out, err = h.tools.ImageWatermark(ctx, doc.Path, img, header.Filename, formOpacity(r), pages)
	case "encrypt":
		out, err = h.tools.Encrypt(ctx, doc.Path, r.FormValue("password"), r.FormValue("owner_password"))
	case "decrypt":
		out, err = h.tools.Decrypt(ctx, doc.Path, r.FormValue("password"))
	case "permissions":
		perms := services.Permissions{
			Print:  formBool(r, "allow_printing", true),
			Modify: formBool(r, "allow_modification", false),
			Copy:   formBool(r, "allow_copying", true),
		}
		out, err = h.tools.SetPermissions(ctx, doc.Path, r.FormValue("password"), r.FormValue("user_password"), perms)
	case "set-metadata":
		props := map[string]string{}
		for field, key := range metadataFields {
			if v := strings.TrimSpace(r.FormValue(field)); v != "" {
				props[key] = v
			}
		}
		out, err = h.tools.SetMetadata(ctx, doc.Path, props)
	case "metadata":
		meta, merr := h.tools.ReadMetadata(ctx, doc.Path)
		if merr != nil {
			log.Warn().Err(merr).Msg("pdf tool failed")
			writeError(w, merr)
			return
		}
		writeJSON(w, http.StatusOK, meta)
		return
	case "optimize":
		out, err = h.tools.Optimize(ctx, doc.Path)
	default:
		writeErrorStatus(w, http.StatusNotFound, fmt.Sprintf("unknown tool %q", op))
		return
	}
	h.respond(w, log, out, err, fmt.Sprintf("%s_%s.pdf", stem, op), "application/pdf")
}

// formOpacity reads the opacity field; anything unparsable lets the tool pick
// its default.
func formOpacity(r *http.Request) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("opacity")), 64)
	if err != nil {
		return 0
	}
	return v
}

// openImages opens every upload under field, in upload order, rejecting
// formats that cannot become PDF pages.
func openImages(w http.ResponseWriter, r *http.Request, field string) ([]io.Reader, func(), bool) {
	var files []io.Closer
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		writeErrorStatus(w, http.StatusBadRequest, "no images provided")
		return nil, closeAll, false
	}
	readers := make([]io.Reader, 0, len(r.MultipartForm.File[field]))
	for _, header := range r.MultipartForm.File[field] {
		if !services.ImportableImage(header.Filename) {
			writeErrorStatus(w, http.StatusBadRequest, fmt.Sprintf("unsupported image %q", header.Filename))
			return nil, closeAll, false
		}
		f, err := header.Open()
		if err != nil {
			writeErrorStatus(w, http.StatusBadRequest, "unreadable upload")
			return nil, closeAll, false
		}
		files = append(files, f)
		readers = append(readers, f)
	}
	return readers, closeAll, true
}

func (h *ToolsHandler) respond(w http.ResponseWriter, log zerolog.Logger, out []byte, err error, filename, contentType string) {
	if err != nil {
		log.Warn().Err(err).Msg("pdf tool failed")
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
