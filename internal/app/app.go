package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/pdfdesk/internal/api/handlers"
	"github.com/markdave123-py/pdfdesk/internal/config"
	"github.com/markdave123-py/pdfdesk/internal/core"
	db "github.com/markdave123-py/pdfdesk/internal/core/database"
	"github.com/markdave123-py/pdfdesk/internal/core/extraction_engine"
	"github.com/markdave123-py/pdfdesk/internal/core/imaging"
	"github.com/markdave123-py/pdfdesk/internal/core/llm"
	objectclient "github.com/markdave123-py/pdfdesk/internal/core/object-client"
	"github.com/markdave123-py/pdfdesk/internal/core/pipeline_engine"
	"github.com/markdave123-py/pdfdesk/internal/core/progress"
	"github.com/markdave123-py/pdfdesk/internal/core/storage"
	"github.com/markdave123-py/pdfdesk/internal/services"
)

type App struct {
	Catalog  *db.CatalogClient
	Tasks    *progress.Store
	Pipeline *pipeline_engine.Orchestrator
	Server   *Server

	closers []func() error
	log     zerolog.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{Tasks: progress.NewStore(), log: log}

	var (
		objects  core.ObjectClient
		embedder core.EmbeddingProvider
		catalog  core.CatalogClient
	)

	if cfg.StorageMirrorEnabled() {
		s3Client, err := objectclient.NewS3Client(appCtx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the object client: %w", err)
		}
		objects = s3Client
	}

	var classifier core.Classifier = llm.DisabledClassifier{}
	if cfg.AIAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set; image classification disabled")
	} else {
		gc, err := llm.NewGeminiClassifier(appCtx, cfg.AIAPIKey, cfg.VisionModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the classifier: %w", err)
		}
		a.closers = append(a.closers, gc.Close)
		classifier = gc

		ge, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
		}
		a.closers = append(a.closers, ge.Close)
		embedder = ge
	}

	if cfg.DatabaseURL != "" {
		catalogClient, err := db.NewCatalogClient(appCtx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("couldn't initialize the product catalog: %w", err)
		}
		a.closers = append(a.closers, catalogClient.Close)
		a.Catalog = catalogClient
		catalog = catalogClient
		log.Info().Msg("product catalog initialized and ready")
	}
	catalogSvc := services.NewCatalogService(catalog, embedder, log)

	storeOpts := []storage.Option{storage.WithLogger(log)}
	if objects != nil {
		storeOpts = append(storeOpts, storage.WithMirror(objects, cfg.BucketName))
	}
	if catalog != nil {
		storeOpts = append(storeOpts, storage.WithIndexer(catalogSvc))
	}
	store, err := storage.NewFileStore(cfg.OutputRoot, storeOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	stager, err := services.NewDocumentService(cfg.UploadDir, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	extractCfg := &extraction_engine.ExtractConfig{RenderDPI: cfg.RenderDPI, OCRLanguages: cfg.OCRLanguages}
	a.Pipeline = pipeline_engine.NewOrchestrator(
		extraction_engine.NewRegistry(),
		extraction_engine.NewTesseractOCR(extractCfg),
		imaging.NewPDFImageExtractor(float64(cfg.RenderDPI), log),
		classifier,
		store,
		log,
	)

	tools := services.NewPDFService(imaging.NewFitzRenderer(float64(cfg.RenderDPI)), log)

	h := Handlers{
		Documents: handlers.NewDocumentHandler(stager, a.Pipeline, a.Tasks, cfg.MaxUploadBytes(), store.Root(), log),
		Progress:  handlers.NewProgressHandler(a.Tasks),
		Reports:   handlers.NewReportHandler(store, log),
		Tools:     handlers.NewToolsHandler(stager, tools, cfg.MaxUploadBytes(), log),
		Auth:      handlers.NewAuthHandler(cfg.JWTSecret, cfg.AdminPasswordHash),
		Catalog:   handlers.NewCatalogHandler(catalogSvc),
	}
	a.Server = NewServer(cfg, NewRouter(cfg, h, log), log)
	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
