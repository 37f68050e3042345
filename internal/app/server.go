package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/pdfdesk/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/pdfdesk/internal/api/middlewares"
	"github.com/markdave123-py/pdfdesk/internal/config"
	"github.com/markdave123-py/pdfdesk/internal/observability"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Documents *handlers.DocumentHandler
	Progress  *handlers.ProgressHandler
	Reports   *handlers.ReportHandler
	Tools     *handlers.ToolsHandler
	Auth      *handlers.AuthHandler
	Catalog   *handlers.CatalogHandler
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// NewRouter builds and wires all routes.
func NewRouter(cfg *config.Config, h Handlers, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	// Serve static files from the web directory
	fileServer := http.FileServer(http.Dir(cfg.WebDir))
	r.Handle("/*", fileServer)

	r.Get("/health", handlers.Health)
	r.Get("/progress/{task_id}", h.Progress.GetProgress)

	// Pipelines run for as long as the document needs; the client polls
	// /progress meanwhile.
	r.Post("/extract", h.Documents.ExtractText)
	r.Post("/extract-images", h.Documents.ExtractImages)
	r.Get("/download-report/*", h.Reports.Download)

	r.Group(func(short chi.Router) {
		short.Use(middleware.Timeout(2 * time.Minute))
		short.Post("/login", h.Auth.Login)

		short.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWT(cfg.JWTSecret))
			protected.Post("/tools/{op}", h.Tools.Run)
			protected.Get("/products/search", h.Catalog.Search)
			protected.Get("/products/{sku}", h.Catalog.Get)
		})
	})

	return r
}

func NewServer(cfg *config.Config, handler http.Handler, log zerolog.Logger) *Server {
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
