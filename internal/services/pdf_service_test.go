package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/core/imaging"
)

type fakeRenderer struct {
	pages int
	err   error
}

func (f *fakeRenderer) RenderPages(ctx context.Context, path string, fn imaging.PageFunc) error {
	if f.err != nil {
		return f.err
	}
	for i := 1; i <= f.pages; i++ {
		if err := fn(i, f.pages, []byte(fmt.Sprintf("png-%d", i))); err != nil {
			return err
		}
	}
	return nil
}

func TestParsePages(t *testing.T) {
	pages, err := ParsePages("")
	require.NoError(t, err)
	assert.Nil(t, pages)

	pages, err = ParsePages(" 1-3, 5 ,even")
	require.NoError(t, err)
	assert.Equal(t, []string{"1-3", "5", "even"}, pages)

	_, err = ParsePages("1,,2")
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))
}

func TestToolArgumentValidation(t *testing.T) {
	svc := NewPDFService(&fakeRenderer{}, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Merge(ctx, []string{"only.pdf"})
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = svc.Rotate(ctx, "doc.pdf", 45, "")
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = svc.Encrypt(ctx, "doc.pdf", "", "")
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = svc.Decrypt(ctx, "doc.pdf", "")
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = svc.Watermark(ctx, "doc.pdf", "  ", 0.5, "")
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = svc.SelectPages(ctx, "doc.pdf", "")
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = svc.DeletePages(ctx, "doc.pdf", "")
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = svc.SetMetadata(ctx, "doc.pdf", map[string]string{" ": "x"})
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	for _, order := range []string{"", "3,,1", "2,x", "0,1"} {
		_, err = svc.Reorder(ctx, "doc.pdf", order)
		assert.Equal(t, core.KindInvalidInput, core.KindOf(err), order)
	}

	_, err = svc.InsertBlankPages(ctx, "doc.pdf", "")
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = svc.ImageWatermark(ctx, "doc.pdf", strings.NewReader("gif"), "logo.gif", 0.5, "")
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = svc.ImagesToPDF(ctx, nil)
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = svc.SetPermissions(ctx, "doc.pdf", "", "", Permissions{})
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = svc.SetPermissions(ctx, "doc.pdf", "same", "same", Permissions{})
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))
}

func TestImportableImage(t *testing.T) {
	for _, name := range []string{"a.JPG", "b.jpeg", "c.png", "d.tiff", "e.webp"} {
		assert.True(t, ImportableImage(name), name)
	}
	for _, name := range []string{"a.gif", "b.pdf", "noext"} {
		assert.False(t, ImportableImage(name), name)
	}
}

func TestPermissionFlags(t *testing.T) {
	assert.Equal(t, model.PermissionFlags(0xF0C3), Permissions{}.flags())

	all := Permissions{Print: true, Modify: true, Copy: true}.flags()
	assert.Equal(t, model.PermissionFlags(0xF0C3|1<<2|1<<3|1<<4|1<<11), all)

	printOnly := Permissions{Print: true}.flags()
	assert.NotZero(t, printOnly&(1<<2))
	assert.Zero(t, printOnly&(1<<3))
	assert.Zero(t, printOnly&(1<<4))
}

func TestToImagesZipsEveryPage(t *testing.T) {
	svc := NewPDFService(&fakeRenderer{pages: 10}, zerolog.Nop())

	data, err := svc.ToImages(context.Background(), "/staged/x.pdf", "Catalog.pdf")
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 10)
	assert.Equal(t, "Catalog_page_01.png", zr.File[0].Name)
	assert.Equal(t, "Catalog_page_10.png", zr.File[9].Name)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png-2", string(body))
}

func TestToImagesRenderFailure(t *testing.T) {
	svc := NewPDFService(&fakeRenderer{err: errors.New("mupdf: cannot open")}, zerolog.Nop())
	_, err := svc.ToImages(context.Background(), "/staged/x.pdf", "x.pdf")
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))
}

func TestZipDirOrdersEntries(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"doc_3-4.pdf", "doc_1-2.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	data, err := zipDir(context.Background(), dir)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "doc_1-2.pdf", zr.File[0].Name)
	assert.Equal(t, "doc_3-4.pdf", zr.File[1].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "doc_1-2.pdf", string(body))
}
