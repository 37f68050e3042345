package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/core/progress"
	"github.com/markdave123-py/pdfdesk/internal/core/storage"
	"github.com/markdave123-py/pdfdesk/internal/models"
	"github.com/markdave123-py/pdfdesk/internal/services"
)

const minimalPDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n"

type part struct {
	field, filename, body string
}

func multipartBody(t *testing.T, fields map[string]string, files ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, rec.Code, body.Code)
	return body
}

type fakePipeline struct {
	gotMethod models.ExtractionMethod
	gotOCR    bool
	gotDoc    models.Document
	midRun    *models.ProgressSnapshot
	tasks     *progress.Store

	text   *models.TextResult
	images *models.PipelineResult
	err    error
}

func (f *fakePipeline) RunText(ctx context.Context, doc models.Document, method models.ExtractionMethod, ocr bool, tr core.ProgressReporter) (*models.TextResult, error) {
	f.gotDoc, f.gotMethod, f.gotOCR = doc, method, ocr
	f.observe(tr)
	return f.text, f.err
}

func (f *fakePipeline) RunImages(ctx context.Context, doc models.Document, tr core.ProgressReporter) (*models.PipelineResult, error) {
	f.gotDoc = doc
	f.observe(tr)
	return f.images, f.err
}

func (f *fakePipeline) observe(tr core.ProgressReporter) {
	tr.Update(1, 2, "halfway", nil)
	if snap, err := f.tasks.Get(tr.ID()); err == nil {
		f.midRun = &snap
	}
}

type docEnv struct {
	tasks    *progress.Store
	pipeline *fakePipeline
	router   chi.Router
	upload   string
}

func newDocEnv(t *testing.T, maxBytes int64) *docEnv {
	t.Helper()
	tasks := progress.NewStore()
	uploadDir := t.TempDir()
	stager, err := services.NewDocumentService(uploadDir, zerolog.Nop())
	require.NoError(t, err)
	p := &fakePipeline{tasks: tasks}
	h := NewDocumentHandler(stager, p, tasks, maxBytes, "/srv/output", zerolog.Nop())

	r := chi.NewRouter()
	r.Post("/extract", h.ExtractText)
	r.Post("/extract-images", h.ExtractImages)
	return &docEnv{tasks: tasks, pipeline: p, router: r, upload: uploadDir}
}

func (e *docEnv) post(t *testing.T, path string, fields map[string]string, files ...part) *httptest.ResponseRecorder {
	body, ct := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestExtractText(t *testing.T) {
	env := newDocEnv(t, 1<<20)
	env.pipeline.text = &models.TextResult{Text: "\n--- Page 1 ---\nhello", Method: models.MethodDocconv, Pages: 1}

	rec := env.post(t, "/extract",
		map[string]string{"method": "pypdf2", "use_ocr": "false", "task_id": "text_client42"},
		part{"file", "Price List.pdf", minimalPDF})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp extractTextResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "\n--- Page 1 ---\nhello", resp.Text)
	assert.Equal(t, "Price_List.pdf", resp.Filename)
	assert.Equal(t, models.MethodDocconv, resp.Method)
	assert.Equal(t, "text_client42", resp.TaskID)

	assert.Equal(t, models.MethodDocconv, env.pipeline.gotMethod)
	assert.False(t, env.pipeline.gotOCR)
	require.NotNil(t, env.pipeline.midRun)
	assert.Equal(t, 50, env.pipeline.midRun.Percentage)

	assert.Zero(t, env.tasks.Len(), "task must be cleared when the request ends")
	assert.NoFileExists(t, env.pipeline.gotDoc.Path, "staged upload must be removed")
}

func TestExtractTextDefaults(t *testing.T) {
	env := newDocEnv(t, 1<<20)
	env.pipeline.text = &models.TextResult{Method: models.MethodNative}

	rec := env.post(t, "/extract", nil, part{"file", "a.pdf", minimalPDF})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MethodNative, env.pipeline.gotMethod)
	assert.True(t, env.pipeline.gotOCR)

	var resp extractTextResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.TaskID, "text_"))
}

func TestExtractTextRejections(t *testing.T) {
	env := newDocEnv(t, 1<<20)

	rec := env.post(t, "/extract", map[string]string{"method": "tika"}, part{"file", "a.pdf", minimalPDF})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error, "tika")

	rec = env.post(t, "/extract", nil, part{"file", "notes.txt", "plain"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error, "only PDF")

	rec = env.post(t, "/extract", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no file provided", decodeError(t, rec).Error)

	entries, err := os.ReadDir(env.upload)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractTextTooLarge(t *testing.T) {
	env := newDocEnv(t, 512)
	rec := env.post(t, "/extract", nil, part{"file", "big.pdf", minimalPDF + strings.Repeat("x", 4096)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	decodeError(t, rec)
}

func TestExtractTextPipelineFailure(t *testing.T) {
	env := newDocEnv(t, 1<<20)
	env.pipeline.err = core.NewError(core.KindExtraction, "native", "extraction failed", os.ErrClosed)

	rec := env.post(t, "/extract", nil, part{"file", "a.pdf", minimalPDF})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "native: extraction failed", body.Error)
	assert.NotContains(t, body.Error, os.ErrClosed.Error())
	assert.Zero(t, env.tasks.Len())
}

func TestExtractImages(t *testing.T) {
	env := newDocEnv(t, 1<<20)
	report := "/srv/output/catalog_products.xlsx"
	env.pipeline.images = &models.PipelineResult{
		TotalImages: 2, Processed: 1, Skipped: 1,
		Results: []models.ImageOutcome{
			{Page: 1, Status: models.StatusProcessed},
			{Page: 2, Status: models.StatusSkipped, Reason: "product not identified"},
		},
		ReportLocation: &report,
	}

	rec := env.post(t, "/extract-images", nil, part{"file", "catalog.pdf", minimalPDF})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp extractImagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.TotalImages)
	assert.Equal(t, resp.TotalImages, resp.Processed+resp.Skipped)
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, "/srv/output", resp.OutputFolder)
	require.NotNil(t, resp.ExcelFile)
	assert.Equal(t, "catalog_products.xlsx", *resp.ExcelFile)
	assert.True(t, strings.HasPrefix(resp.TaskID, "images_"))
}

func TestExtractImagesNoImages(t *testing.T) {
	env := newDocEnv(t, 1<<20)
	env.pipeline.err = core.NewError(core.KindNoImages, "image_extraction", "no images found in document", nil)

	rec := env.post(t, "/extract-images", nil, part{"file", "a.pdf", minimalPDF})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no images found in document", decodeError(t, rec).Error)
}

func TestGetProgress(t *testing.T) {
	tasks := progress.NewStore()
	r := chi.NewRouter()
	r.Get("/progress/{task_id}", NewProgressHandler(tasks).GetProgress)

	tr := tasks.Begin(progress.KindImages, "images_abc")
	eta := 12
	tr.Update(3, 4, "Analyzing image 4 of 4", &eta)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress/images_abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, float64(75), snap["percentage"])
	assert.Equal(t, float64(12), snap["eta_seconds"])
	assert.Equal(t, "Analyzing image 4 of 4", snap["message"])

	tr.Close()
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress/images_abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "task not found", decodeError(t, rec).Error)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestDownloadReport(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "catalog_products.xlsx"), []byte("xlsx-bytes"), 0o644))

	r := chi.NewRouter()
	r.Get("/download-report/*", NewReportHandler(store, zerolog.Nop()).Download)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/download-report/catalog_products.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "xlsx-bytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "catalog_products.xlsx")

	rec = get("/download-report/../../etc/passwd")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	decodeError(t, rec)

	rec = get("/download-report/..%2F..%2Fetc%2Fpasswd")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = get("/download-report/missing.xlsx")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadReportNameIsDecodedOnce(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "%41_products.xlsx"), []byte("literal"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(store.Root(), "Gate"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "Gate", "X1.json"), []byte("{}"), 0o644))

	r := chi.NewRouter()
	r.Get("/download-report/*", NewReportHandler(store, zerolog.Nop()).Download)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download-report/%2541_products.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "literal", rec.Body.String())

	for _, path := range []string{"/download-report/Gate/X1.json", "/download-report/Gate%2FX1.json"} {
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	post := func(h *AuthHandler, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body)))
		return rec
	}

	rec := post(NewAuthHandler("", ""), `{"password":"hunter2"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h := NewAuthHandler("s3cret", string(hash))
	assert.Equal(t, http.StatusBadRequest, post(h, `not json`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(h, `{"password":"wrong"}`).Code)

	rec = post(h, `{"username":"ops","password":"hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(resp["token"], claims, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	require.NoError(t, err)
	assert.True(t, tok.Valid)
	assert.Equal(t, "ops", claims["user_id"])
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(tokenTTL), exp.Time, time.Minute)
}

type fakeTools struct {
	calls   []string
	degrees int
	pages   string
	merged  int
	order   string
	images  []string
	wmName  string
	wmBody  string
	perms   services.Permissions
	ownerPW string
	userPW  string
}

func (f *fakeTools) Merge(ctx context.Context, paths []string) ([]byte, error) {
	f.calls = append(f.calls, "merge")
	f.merged = len(paths)
	return []byte("%PDF-merged"), nil
}

func (f *fakeTools) Split(ctx context.Context, path, baseName string, span int) ([]byte, error) {
	f.calls = append(f.calls, "split")
	return []byte("PK"), nil
}

func (f *fakeTools) SelectPages(ctx context.Context, path, selection string) ([]byte, error) {
	f.pages = selection
	return []byte("%PDF-selected"), nil
}

func (f *fakeTools) DeletePages(ctx context.Context, path, selection string) ([]byte, error) {
	f.pages = selection
	return []byte("%PDF-deleted"), nil
}

func (f *fakeTools) Rotate(ctx context.Context, path string, degrees int, selection string) ([]byte, error) {
	f.degrees, f.pages = degrees, selection
	return []byte("%PDF-rotated"), nil
}

func (f *fakeTools) Watermark(ctx context.Context, path, text string, opacity float64, selection string) ([]byte, error) {
	return []byte("%PDF-wm"), nil
}

func (f *fakeTools) Encrypt(ctx context.Context, path, userPW, ownerPW string) ([]byte, error) {
	return nil, core.NewError(core.KindInvalidInput, "pdf_tools", "password is required", nil)
}

func (f *fakeTools) Decrypt(ctx context.Context, path, password string) ([]byte, error) {
	return []byte("%PDF-plain"), nil
}

func (f *fakeTools) SetMetadata(ctx context.Context, path string, props map[string]string) ([]byte, error) {
	return []byte("%PDF-meta"), nil
}

func (f *fakeTools) ReadMetadata(ctx context.Context, path string) (*services.Metadata, error) {
	return &services.Metadata{Pages: 3, Title: "Catalog"}, nil
}

func (f *fakeTools) Optimize(ctx context.Context, path string) ([]byte, error) {
	return []byte("%PDF-small"), nil
}

func (f *fakeTools) Reorder(ctx context.Context, path, order string) ([]byte, error) {
	f.order = order
	return []byte("%PDF-reordered"), nil
}

func (f *fakeTools) InsertBlankPages(ctx context.Context, path, selection string) ([]byte, error) {
	f.pages = selection
	return []byte("%PDF-blank"), nil
}

func (f *fakeTools) ImageWatermark(ctx context.Context, path string, img io.Reader, imgName string, opacity float64, selection string) ([]byte, error) {
	body, err := io.ReadAll(img)
	if err != nil {
		return nil, err
	}
	f.wmName, f.wmBody = imgName, string(body)
	return []byte("%PDF-imgwm"), nil
}

func (f *fakeTools) ImagesToPDF(ctx context.Context, images []io.Reader) ([]byte, error) {
	for _, img := range images {
		body, err := io.ReadAll(img)
		if err != nil {
			return nil, err
		}
		f.images = append(f.images, string(body))
	}
	return []byte("%PDF-images"), nil
}

func (f *fakeTools) ToImages(ctx context.Context, path, baseName string) ([]byte, error) {
	return []byte("PK-pages"), nil
}

func (f *fakeTools) SetPermissions(ctx context.Context, path, ownerPW, userPW string, perms services.Permissions) ([]byte, error) {
	f.ownerPW, f.userPW, f.perms = ownerPW, userPW, perms
	return []byte("%PDF-locked"), nil
}

func newToolsRouter(t *testing.T, tools *fakeTools) chi.Router {
	t.Helper()
	stager, err := services.NewDocumentService(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Post("/tools/{op}", NewToolsHandler(stager, tools, 1<<20, zerolog.Nop()).Run)
	return r
}

func postTool(t *testing.T, r chi.Router, op string, fields map[string]string, files ...part) *httptest.ResponseRecorder {
	body, ct := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, "/tools/"+op, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestToolsRotate(t *testing.T) {
	tools := &fakeTools{}
	r := newToolsRouter(t, tools)

	rec := postTool(t, r, "rotate", map[string]string{"degrees": "180", "pages": "1-2"}, part{"file", "plan.pdf", minimalPDF})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "%PDF-rotated", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "plan_rotate.pdf")
	assert.Equal(t, 180, tools.degrees)
	assert.Equal(t, "1-2", tools.pages)

	rec = postTool(t, r, "rotate", map[string]string{"degrees": "ninety"}, part{"file", "plan.pdf", minimalPDF})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToolsMergeSplitAndMetadata(t *testing.T) {
	tools := &fakeTools{}
	r := newToolsRouter(t, tools)

	rec := postTool(t, r, "merge", nil, part{"files", "a.pdf", minimalPDF}, part{"files", "b.pdf", minimalPDF})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, tools.merged)

	rec = postTool(t, r, "split", map[string]string{"span": "2"}, part{"file", "plan.pdf", minimalPDF})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "plan_split.zip")

	rec = postTool(t, r, "metadata", nil, part{"file", "plan.pdf", minimalPDF})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pages":3,"title":"Catalog","encrypted":false}`, rec.Body.String())
}

func TestToolsPageAndImageOperations(t *testing.T) {
	tools := &fakeTools{}
	r := newToolsRouter(t, tools)
	pdf := part{"file", "plan.pdf", minimalPDF}

	rec := postTool(t, r, "reorder", map[string]string{"order": "3,1,2"}, pdf)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "3,1,2", tools.order)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "plan_reorder.pdf")

	rec = postTool(t, r, "insert-blank", map[string]string{"pages": "2"}, pdf)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", tools.pages)

	rec = postTool(t, r, "to-images", nil, pdf)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "plan_pages.zip")

	rec = postTool(t, r, "image-watermark", map[string]string{"opacity": "0.5"}, pdf, part{"image", "logo.png", "logo-bytes"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "logo.png", tools.wmName)
	assert.Equal(t, "logo-bytes", tools.wmBody)

	rec = postTool(t, r, "image-watermark", nil, pdf)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postTool(t, r, "images-to-pdf", nil, part{"images", "p1.jpg", "one"}, part{"images", "p2.png", "two"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"one", "two"}, tools.images)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "images.pdf")

	rec = postTool(t, r, "images-to-pdf", nil, part{"images", "anim.gif", "gif"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error, "anim.gif")

	rec = postTool(t, r, "images-to-pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToolsPermissions(t *testing.T) {
	tools := &fakeTools{}
	r := newToolsRouter(t, tools)

	rec := postTool(t, r, "permissions", map[string]string{"password": "owner"}, part{"file", "plan.pdf", minimalPDF})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "owner", tools.ownerPW)
	assert.Empty(t, tools.userPW)
	assert.Equal(t, services.Permissions{Print: true, Copy: true}, tools.perms)

	rec = postTool(t, r, "permissions", map[string]string{
		"password":           "owner",
		"user_password":      "reader",
		"allow_printing":     "false",
		"allow_modification": "on",
		"allow_copying":      "no",
	}, part{"file", "plan.pdf", minimalPDF})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reader", tools.userPW)
	assert.Equal(t, services.Permissions{Modify: true}, tools.perms)
}

func TestToolsErrors(t *testing.T) {
	r := newToolsRouter(t, &fakeTools{})

	rec := postTool(t, r, "encrypt", nil, part{"file", "a.pdf", minimalPDF})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password is required", decodeError(t, rec).Error)

	rec = postTool(t, r, "teleport", nil, part{"file", "a.pdf", minimalPDF})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postTool(t, r, "merge", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeCatalog struct{}

func (fakeCatalog) Search(ctx context.Context, q string, limit int) ([]models.ProductRecord, error) {
	if q == "" {
		return nil, core.NewError(core.KindInvalidInput, "search", "query is required", nil)
	}
	return []models.ProductRecord{{SKU: "GT-1", Category: models.CategoryGate}}, nil
}

func (fakeCatalog) Get(ctx context.Context, sku string) (*models.ProductRecord, error) {
	if sku != "GT-1" {
		return nil, core.NewError(core.KindNotFound, "catalog", "product not found", nil)
	}
	return &models.ProductRecord{SKU: "GT-1"}, nil
}

func TestCatalogHandler(t *testing.T) {
	h := NewCatalogHandler(fakeCatalog{})
	r := chi.NewRouter()
	r.Get("/products/search", h.Search)
	r.Get("/products/{sku}", h.Get)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/products/search?q=black+gate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	assert.Equal(t, http.StatusBadRequest, get("/products/search").Code)
	assert.Equal(t, http.StatusOK, get("/products/GT-1").Code)
	assert.Equal(t, http.StatusNotFound, get("/products/nope").Code)
}
