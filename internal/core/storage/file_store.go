// Package storage persists classified product images into a category-scoped
// directory tree and renders the per-document spreadsheet report.
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/models"
)

const (
	saveStage   = "persist"
	reportStage = "report"

	maxNameLen = 100
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SafeName derives a filesystem-safe name from a sku or file stem.
func SafeName(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "_")
	if len(s) > maxNameLen {
		s = strings.TrimRight(s[:maxNameLen], "_")
	}
	return s
}

// productFileName is SafeName(sku), suffixed with a short hash of the raw sku
// whenever cleaning changed it, so distinct skus never share a file.
func productFileName(sku string) string {
	name := SafeName(sku)
	if name == "" || name == sku {
		return name
	}
	sum := sha256.Sum256([]byte(sku))
	return name + "_" + hex.EncodeToString(sum[:])[:8]
}

// FileStore implements core.ProductWriter on the local filesystem. Layout:
//
//	<root>/<Category>/<sku>.<ext>
//	<root>/<Category>/<sku>.json
//	<root>/<document>_products.xlsx
//
// An optional object store mirror and catalog indexer receive every record;
// their failures are logged and never fail a save.
type FileStore struct {
	root    string
	mirror  core.ObjectClient
	bucket  string
	indexer core.ProductIndexer
	log     zerolog.Logger
	now     func() time.Time
}

var _ core.ProductWriter = (*FileStore)(nil)

type Option func(*FileStore)

func WithMirror(obj core.ObjectClient, bucket string) Option {
	return func(s *FileStore) {
		s.mirror = obj
		s.bucket = bucket
	}
}

func WithIndexer(idx core.ProductIndexer) Option {
	return func(s *FileStore) { s.indexer = idx }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *FileStore) { s.log = l }
}

func NewFileStore(root string, opts ...Option) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve output root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	s := &FileStore{root: abs, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root is the absolute output root.
func (s *FileStore) Root() string { return s.root }

// Save writes the image and its metadata under the category folder. It returns
// nil for the Unknown sentinel. Saving the same sku and category again
// overwrites both files; skus that only differ in unsafe characters get
// separate files.
func (s *FileStore) Save(ctx context.Context, img models.ExtractedImage, cls models.ClassificationResult, source string) (*models.ProductRecord, error) {
	if cls.IsUnknown() {
		return nil, nil
	}

	name := productFileName(cls.SKU)
	if name == "" {
		return nil, core.NewError(core.KindPersistence, saveStage, fmt.Sprintf("sku %q has no usable characters", cls.SKU), nil)
	}
	if len(img.Data) == 0 {
		return nil, core.NewError(core.KindPersistence, saveStage, "image buffer already released", nil)
	}
	category := cls.Category
	if category == "" {
		category = models.CategoryUnknown
	}
	ext := strings.ToLower(img.Ext)
	if ext == "" {
		ext = "png"
	}

	dir := filepath.Join(s.root, string(category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, core.NewError(core.KindPersistence, saveStage, "create category folder", err)
	}

	rec := &models.ProductRecord{
		SKU:            cls.SKU,
		Category:       category,
		Description:    cls.Description,
		SilhouettePath: cls.SilhouettePath,
		PrimaryColor:   cls.PrimaryColor,
		SecondaryColor: cls.SecondaryColor,
		ImagePath:      filepath.Join(dir, name+"."+ext),
		MetadataPath:   filepath.Join(dir, name+".json"),
		SourceDocument: source,
		Page:           img.Page,
		CreatedAt:      s.now().UTC(),
	}

	if err := removeStaleImages(dir, name, ext); err != nil {
		return nil, core.NewError(core.KindPersistence, saveStage, "remove previous image", err)
	}
	if err := writeFileAtomic(rec.ImagePath, img.Data); err != nil {
		return nil, core.NewError(core.KindPersistence, saveStage, "write image", err)
	}
	meta, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, core.NewError(core.KindPersistence, saveStage, "encode metadata", err)
	}
	if err := writeFileAtomic(rec.MetadataPath, meta); err != nil {
		return nil, core.NewError(core.KindPersistence, saveStage, "write metadata", err)
	}

	s.mirrorProduct(ctx, rec, name, ext, img.Data, meta)
	if s.indexer != nil {
		if err := s.indexer.Index(ctx, rec); err != nil {
			s.log.Warn().Err(err).Str("sku", rec.SKU).Msg("catalog index failed")
		}
	}
	return rec, nil
}

// removeStaleImages deletes an earlier image of the same sku saved with a
// different extension so the folder never holds two images for one sku.
func removeStaleImages(dir, name, keepExt string) error {
	matches, err := filepath.Glob(filepath.Join(dir, name+".*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		ext := strings.TrimPrefix(filepath.Ext(m), ".")
		if ext == keepExt || ext == "json" || strings.TrimSuffix(filepath.Base(m), "."+ext) != name {
			continue
		}
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	// CreateTemp opens 0600; the tree is meant to be readable by others.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FileStore) mirrorProduct(ctx context.Context, rec *models.ProductRecord, name, ext string, image, meta []byte) {
	if s.mirror == nil {
		return
	}
	prefix := "products/" + string(rec.Category) + "/" + name

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.mirror.UploadFile(gctx, s.bucket, prefix+"."+ext, bytes.NewReader(image), contentTypeFor(ext))
		return err
	})
	g.Go(func() error {
		_, err := s.mirror.UploadFile(gctx, s.bucket, prefix+".json", bytes.NewReader(meta), "application/json")
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Str("sku", rec.SKU).Msg("product mirror upload failed")
	}
}

func contentTypeFor(ext string) string {
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "tif", "tiff":
		return "image/tiff"
	}
	return "application/octet-stream"
}

// ResolveReport maps a requested report file name to a path under the output
// root. Names that escape the root are rejected with KindPathTraversal. Only
// root-level "*_products.xlsx" files are reports; anything else under the
// root, such as product images or sidecars, is KindNotFound.
func (s *FileStore) ResolveReport(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) || filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", core.NewError(core.KindPathTraversal, "download", "invalid report name", nil)
	}
	full := filepath.Join(s.root, filepath.FromSlash(name))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", core.NewError(core.KindPathTraversal, "download", "report path outside output root", nil)
	}
	if strings.ContainsRune(rel, filepath.Separator) || !strings.HasSuffix(rel, reportSuffix) {
		return "", core.NewError(core.KindNotFound, "download", "report not found", nil)
	}
	return full, nil
}

// OpenReport opens a report by name, falling back to the object store mirror
// when the local copy is gone.
func (s *FileStore) OpenReport(ctx context.Context, name string) (io.ReadCloser, error) {
	full, err := s.ResolveReport(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err == nil {
		if st, statErr := f.Stat(); statErr == nil && st.Mode().IsRegular() {
			return f, nil
		}
		f.Close()
		return nil, core.NewError(core.KindNotFound, "download", "report not found", nil)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, core.NewError(core.KindInternal, "download", "open report", err)
	}

	if s.mirror != nil {
		rc, mErr := s.mirror.GetObjectReader(ctx, s.bucket, reportKey(filepath.Base(full)))
		if mErr == nil {
			return rc, nil
		}
		s.log.Debug().Err(mErr).Str("report", name).Msg("report not in mirror")
	}
	return nil, core.NewError(core.KindNotFound, "download", "report not found", err)
}

func reportKey(name string) string { return "reports/" + name }
