package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/core/imaging"
)

const toolStage = "pdf_tools"

// Metadata is the document information read back from a PDF.
type Metadata struct {
	Pages      int               `json:"pages"`
	Title      string            `json:"title,omitempty"`
	Author     string            `json:"author,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	Keywords   string            `json:"keywords,omitempty"`
	Creator    string            `json:"creator,omitempty"`
	Producer   string            `json:"producer,omitempty"`
	Encrypted  bool              `json:"encrypted"`
	Properties map[string]string `json:"properties,omitempty"`
}

// PDFService implements the page-level editing tools on top of pdfcpu, and
// page rasterizing on top of the shared renderer. Every operation reads staged
// files and returns the result in memory.
type PDFService struct {
	renderer imaging.PageRenderer
	log      zerolog.Logger
}

func NewPDFService(renderer imaging.PageRenderer, log zerolog.Logger) *PDFService {
	return &PDFService{renderer: renderer, log: log}
}

// importableImages are the formats pdfcpu can embed as pages or watermarks.
var importableImages = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".tif": true, ".tiff": true, ".webp": true,
}

// ImportableImage reports whether name has an image extension pdfcpu imports.
func ImportableImage(name string) bool {
	return importableImages[strings.ToLower(filepath.Ext(name))]
}

func toolError(op string, err error) error {
	return core.NewError(core.KindInvalidInput, toolStage, op+" failed", err)
}

// withFile opens path and runs fn with an output buffer.
func withFile(path string, fn func(rs io.ReadSeeker, w io.Writer) error) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := fn(f, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParsePages splits a selection such as "1-3, 5, even" into pdfcpu tokens.
// An empty selection means every page.
func ParsePages(sel string) ([]string, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return nil, nil
	}
	var out []string
	for _, tok := range strings.Split(sel, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return nil, core.NewError(core.KindInvalidInput, toolStage, fmt.Sprintf("invalid page selection %q", sel), nil)
		}
		out = append(out, tok)
	}
	return out, nil
}

// PageCount returns the number of pages of a PDF.
func (s *PDFService) PageCount(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := api.PageCount(f, model.NewDefaultConfiguration())
	if err != nil {
		return 0, toolError("page count", err)
	}
	return n, nil
}

// Merge concatenates paths in order.
func (s *PDFService) Merge(ctx context.Context, paths []string) ([]byte, error) {
	if len(paths) < 2 {
		return nil, core.NewError(core.KindInvalidInput, toolStage, "merge needs at least two files", nil)
	}
	readers := make([]io.ReadSeeker, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		readers = append(readers, f)
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, model.NewDefaultConfiguration()); err != nil {
		return nil, toolError("merge", err)
	}
	s.log.Debug().Int("files", len(paths)).Msg("merged documents")
	return buf.Bytes(), nil
}

// Split cuts the document into parts of span pages and returns them zipped.
func (s *PDFService) Split(ctx context.Context, path, baseName string, span int) ([]byte, error) {
	if span < 1 {
		span = 1
	}
	outDir, err := os.MkdirTemp(filepath.Dir(path), "split-*")
	if err != nil {
		return nil, fmt.Errorf("create split dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stem := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if stem == "" {
		stem = "document"
	}
	if err := api.Split(f, outDir, stem+".pdf", span, model.NewDefaultConfiguration()); err != nil {
		return nil, toolError("split", err)
	}
	return zipDir(ctx, outDir)
}

// zipDir archives the regular files of dir in name order.
func zipDir(ctx context.Context, dir string) ([]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() {
			continue
		}
		w, err := zw.Create(e.Name())
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SelectPages keeps only the selected pages.
func (s *PDFService) SelectPages(ctx context.Context, path, selection string) ([]byte, error) {
	pages, err := ParsePages(selection)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, core.NewError(core.KindInvalidInput, toolStage, "page selection is required", nil)
	}
	out, err := withFile(path, func(rs io.ReadSeeker, w io.Writer) error {
		return api.Trim(rs, w, pages, model.NewDefaultConfiguration())
	})
	if err != nil {
		return nil, toolError("select pages", err)
	}
	return out, nil
}

// DeletePages removes the selected pages.
func (s *PDFService) DeletePages(ctx context.Context, path, selection string) ([]byte, error) {
	pages, err := ParsePages(selection)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, core.NewError(core.KindInvalidInput, toolStage, "page selection is required", nil)
	}
	out, err := withFile(path, func(rs io.ReadSeeker, w io.Writer) error {
		return api.RemovePages(rs, w, pages, model.NewDefaultConfiguration())
	})
	if err != nil {
		return nil, toolError("delete pages", err)
	}
	return out, nil
}

// Rotate turns the selected pages (all when empty) by a multiple of 90 degrees.
func (s *PDFService) Rotate(ctx context.Context, path string, degrees int, selection string) ([]byte, error) {
	if degrees == 0 || degrees%90 != 0 {
		return nil, core.NewError(core.KindInvalidInput, toolStage, fmt.Sprintf("rotation must be a multiple of 90, got %d", degrees), nil)
	}
	pages, err := ParsePages(selection)
	if err != nil {
		return nil, err
	}
	out, err := withFile(path, func(rs io.ReadSeeker, w io.Writer) error {
		return api.Rotate(rs, w, degrees, pages, model.NewDefaultConfiguration())
	})
	if err != nil {
		return nil, toolError("rotate", err)
	}
	return out, nil
}

// Watermark stamps text diagonally across the selected pages.
func (s *PDFService) Watermark(ctx context.Context, path, text string, opacity float64, selection string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, core.NewError(core.KindInvalidInput, toolStage, "watermark text is required", nil)
	}
	if opacity <= 0 || opacity > 1 {
		opacity = 0.3
	}
	pages, err := ParsePages(selection)
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("font:Helvetica, points:48, rotation:45, opacity:%.2f", opacity)
	wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
	if err != nil {
		return nil, toolError("watermark", err)
	}
	out, err := withFile(path, func(rs io.ReadSeeker, w io.Writer) error {
		return api.AddWatermarks(rs, w, pages, wm, model.NewDefaultConfiguration())
	})
	if err != nil {
		return nil, toolError("watermark", err)
	}
	return out, nil
}

// Encrypt protects the document with AES-256. The owner password defaults to
// the user password.
func (s *PDFService) Encrypt(ctx context.Context, path, userPW, ownerPW string) ([]byte, error) {
	if userPW == "" {
		return nil, core.NewError(core.KindInvalidInput, toolStage, "password is required", nil)
	}
	if ownerPW == "" {
		ownerPW = userPW
	}
	conf := model.NewAESConfiguration(userPW, ownerPW, 256)
	out, err := withFile(path, func(rs io.ReadSeeker, w io.Writer) error {
		return api.Encrypt(rs, w, conf)
	})
	if err != nil {
		return nil, toolError("encrypt", err)
	}
	return out, nil
}

// Decrypt removes protection using either the user or owner password.
func (s *PDFService) Decrypt(ctx context.Context, path, password string) ([]byte, error) {
	if password == "" {
		return nil, core.NewError(core.KindInvalidInput, toolStage, "password is required", nil)
	}
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	out, err := withFile(path, func(rs io.ReadSeeker, w io.Writer) error {
		return api.Decrypt(rs, w, conf)
	})
	if err != nil {
		return nil, toolError("decrypt", err)
	}
	return out, nil
}

// SetMetadata writes document properties such as Title or Author.
func (s *PDFService) SetMetadata(ctx context.Context, path string, props map[string]string) ([]byte, error) {
	clean := make(map[string]string, len(props))
	for k, v := range props {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		clean[k] = v
	}
	if len(clean) == 0 {
		return nil, core.NewError(core.KindInvalidInput, toolStage, "at least one property is required", nil)
	}
	out, err := withFile(path, func(rs io.ReadSeeker, w io.Writer) error {
		return api.AddProperties(rs, w, clean, model.NewDefaultConfiguration())
	})
	if err != nil {
		return nil, toolError("set metadata", err)
	}
	return out, nil
}

// ReadMetadata returns the document information dictionary and page count.
func (s *PDFService) ReadMetadata(ctx context.Context, path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pdfCtx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, toolError("read metadata", err)
	}
	return &Metadata{
		Pages:      pdfCtx.PageCount,
		Title:      pdfCtx.Title,
		Author:     pdfCtx.Author,
		Subject:    pdfCtx.Subject,
		Keywords:   pdfCtx.Keywords,
		Creator:    pdfCtx.Creator,
		Producer:   pdfCtx.Producer,
		Encrypted:  pdfCtx.Encrypt != nil,
		Properties: pdfCtx.Properties,
	}, nil
}

// Optimize rewrites the document dropping redundant objects.
func (s *PDFService) Optimize(ctx context.Context, path string) ([]byte, error) {
	out, err := withFile(path, func(rs io.ReadSeeker, w io.Writer) error {
		return api.Optimize(rs, w, model.NewDefaultConfiguration())
	})
	if err != nil {
		return nil, toolError("optimize", err)
	}
	return out, nil
}

// Reorder rebuilds the document from the pages listed in order, e.g. "3,1,2".
// Pages may repeat; unlisted pages are dropped.
func (s *PDFService) Reorder(ctx context.Context, path, order string) ([]byte, error) {
	var pages []int
	for _, tok := range strings.Split(order, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil || n < 1 {
			return nil, core.NewError(core.KindInvalidInput, toolStage, fmt.Sprintf("invalid page order %q", order), nil)
		}
		pages = append(pages, n)
	}

	total, err := s.PageCount(ctx, path)
	if err != nil {
		return nil, err
	}
	sel := make([]string, len(pages))
	for i, n := range pages {
		if n > total {
			return nil, core.NewError(core.KindInvalidInput, toolStage, fmt.Sprintf("page %d out of range, document has %d", n, total), nil)
		}
		sel[i] = strconv.Itoa(n)
	}

	out, err := withFile(path, func(rs io.ReadSeeker, w io.Writer) error {
		return api.Collect(rs, w, sel, model.NewDefaultConfiguration())
	})
	if err != nil {
		return nil, toolError("reorder", err)
	}
	return out, nil
}

// InsertBlankPages adds an empty page, sized like its neighbour, before each
// selected page.
func (s *PDFService) InsertBlankPages(ctx context.Context, path, selection string) ([]byte, error) {
	pages, err := ParsePages(selection)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, core.NewError(core.KindInvalidInput, toolStage, "page selection is required", nil)
	}
	out, err := withFile(path, func(rs io.ReadSeeker, w io.Writer) error {
		return api.InsertPages(rs, w, pages, true, nil, model.NewDefaultConfiguration())
	})
	if err != nil {
		return nil, toolError("insert blank pages", err)
	}
	return out, nil
}

// ImageWatermark stamps an image, centred at half the page size, on the
// selected pages.
func (s *PDFService) ImageWatermark(ctx context.Context, path string, img io.Reader, imgName string, opacity float64, selection string) ([]byte, error) {
	if !ImportableImage(imgName) {
		return nil, core.NewError(core.KindInvalidInput, toolStage, fmt.Sprintf("unsupported watermark image %q", imgName), nil)
	}
	if opacity <= 0 || opacity > 1 {
		opacity = 0.3
	}
	pages, err := ParsePages(selection)
	if err != nil {
		return nil, err
	}

	// pdfcpu loads watermark images by file name.
	tmp, err := os.CreateTemp(filepath.Dir(path), "wm-*"+strings.ToLower(filepath.Ext(imgName)))
	if err != nil {
		return nil, fmt.Errorf("stage watermark image: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, img); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("stage watermark image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("stage watermark image: %w", err)
	}

	desc := fmt.Sprintf("scalefactor:0.5, rotation:0, opacity:%.2f", opacity)
	wm, err := api.ImageWatermark(tmp.Name(), desc, true, false, types.POINTS)
	if err != nil {
		return nil, toolError("image watermark", err)
	}
	out, err := withFile(path, func(rs io.ReadSeeker, w io.Writer) error {
		return api.AddWatermarks(rs, w, pages, wm, model.NewDefaultConfiguration())
	})
	if err != nil {
		return nil, toolError("image watermark", err)
	}
	return out, nil
}

// ImagesToPDF builds a new document with one page per image, in order.
func (s *PDFService) ImagesToPDF(ctx context.Context, images []io.Reader) ([]byte, error) {
	if len(images) == 0 {
		return nil, core.NewError(core.KindInvalidInput, toolStage, "at least one image is required", nil)
	}
	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, images, pdfcpu.DefaultImportConfig(), model.NewDefaultConfiguration()); err != nil {
		return nil, toolError("images to pdf", err)
	}
	s.log.Debug().Int("images", len(images)).Msg("built document from images")
	return buf.Bytes(), nil
}

// ToImages renders every page to PNG and returns them zipped as
// <stem>_page_<n>.png, n zero-padded to the page count's width.
func (s *PDFService) ToImages(ctx context.Context, path, baseName string) ([]byte, error) {
	stem := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if stem == "" {
		stem = "document"
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	err := s.renderer.RenderPages(ctx, path, func(page, total int, pngData []byte) error {
		name := fmt.Sprintf("%s_page_%0*d.png", stem, len(strconv.Itoa(total)), page)
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write(pngData)
		return err
	})
	if err != nil {
		return nil, toolError("render pages", err)
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Permissions are the rights a reader keeps on a document locked with
// SetPermissions.
type Permissions struct {
	Print  bool
	Modify bool
	Copy   bool
}

// User access bits of the encryption dictionary's P entry. lockedPermissions
// sets the reserved bits and clears every right.
const (
	lockedPermissions = 0xF0C3

	permPrint   = 1 << 2
	permModify  = 1 << 3
	permCopy    = 1 << 4
	permPrintHQ = 1 << 11
)

func (p Permissions) flags() model.PermissionFlags {
	f := lockedPermissions
	if p.Print {
		f |= permPrint | permPrintHQ
	}
	if p.Modify {
		f |= permModify
	}
	if p.Copy {
		f |= permCopy
	}
	return model.PermissionFlags(f)
}

// SetPermissions encrypts the document with AES-256 so that only the owner
// password grants full rights. userPW may be empty, leaving the document
// readable without a password but restricted to perms.
func (s *PDFService) SetPermissions(ctx context.Context, path, ownerPW, userPW string, perms Permissions) ([]byte, error) {
	if ownerPW == "" {
		return nil, core.NewError(core.KindInvalidInput, toolStage, "owner password is required", nil)
	}
	if userPW == ownerPW {
		return nil, core.NewError(core.KindInvalidInput, toolStage, "user password must differ from the owner password", nil)
	}
	conf := model.NewAESConfiguration(userPW, ownerPW, 256)
	conf.Permissions = perms.flags()
	out, err := withFile(path, func(rs io.ReadSeeker, w io.Writer) error {
		return api.Encrypt(rs, w, conf)
	})
	if err != nil {
		return nil, toolError("set permissions", err)
	}
	return out, nil
}
