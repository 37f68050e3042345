package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/models"
)

var pdfMagic = []byte("%PDF-")

// DocumentService stages uploaded PDFs on local disk for the duration of one
// request.
type DocumentService struct {
	uploadDir string
	log       zerolog.Logger
}

func NewDocumentService(uploadDir string, log zerolog.Logger) (*DocumentService, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DocumentService{uploadDir: uploadDir, log: log}, nil
}

// Stage copies the upload into a fresh temp file and returns the document with
// a release func that removes it. The caller must defer release.
func (s *DocumentService) Stage(ctx context.Context, file io.Reader, header *multipart.FileHeader) (*models.Document, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if header == nil || strings.TrimSpace(header.Filename) == "" {
		return nil, nil, core.NewError(core.KindInvalidInput, "upload", "no file selected", nil)
	}
	name := CleanFileName(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return nil, nil, core.NewError(core.KindInvalidInput, "upload", "invalid file type, only PDF files are allowed", nil)
	}

	id := uuid.NewString()
	tmp, err := os.CreateTemp(s.uploadDir, id+"-*.pdf")
	if err != nil {
		return nil, nil, fmt.Errorf("create staging file: %w", err)
	}
	release := func() {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Str("path", tmp.Name()).Msg("remove staged upload")
		}
	}

	size, err := io.Copy(tmp, file)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("stage upload: %w", err)
	}
	if err := checkPDFHeader(tmp.Name()); err != nil {
		release()
		return nil, nil, err
	}

	doc := &models.Document{
		ID:          id,
		FileName:    name,
		Path:        tmp.Name(),
		Size:        size,
		ContentType: "application/pdf",
		UploadedAt:  time.Now().UTC(),
	}
	s.log.Debug().Str("document", doc.FileName).Int64("size", size).Msg("upload staged")
	return doc, release, nil
}

func checkPDFHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reopen staged upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, 1024)
	n, _ := io.ReadFull(f, head)
	if !strings.Contains(string(head[:n]), string(pdfMagic)) {
		return core.NewError(core.KindInvalidInput, "upload", "file is not a PDF document", nil)
	}
	return nil
}

// CleanFileName reduces a client-supplied name to a safe base name.
func CleanFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.ReplaceAll(name, " ", "_")
}
