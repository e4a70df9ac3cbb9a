// Package api exposes the contract review pipeline over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kamilpajak/redline/internal/analysis"
	"github.com/kamilpajak/redline/internal/report"
	"github.com/kamilpajak/redline/internal/store"
)

const defaultMaxUpload = 25 << 20 // 25 MB

// Server is the API server.
type Server struct {
	router    chi.Router
	pipeline  *analysis.Pipeline
	store     *store.Store
	reports   *report.Assembler
	formats   []report.Format
	uploadDir string
	maxUpload int64
	logger    *slog.Logger
}

// Config holds API server configuration.
type Config struct {
	Pipeline       *analysis.Pipeline
	Store          *store.Store
	Reports        *report.Assembler
	Formats        []report.Format // generated when a request names none
	UploadDir      string
	MaxUploadBytes int64
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = report.Formats
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	s := &Server{
		router:    r,
		pipeline:  cfg.Pipeline,
		store:     cfg.Store,
		reports:   cfg.Reports,
		formats:   cfg.Formats,
		uploadDir: cfg.UploadDir,
		maxUpload: cfg.MaxUploadBytes,
		logger:    cfg.Logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/templates", s.handleListTemplates)

		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", s.handleCreateAnalysis)
			r.Post("/stream", s.handleStreamAnalysis)
			r.Get("/", s.handleListAnalyses)
			r.Get("/{analysisID}", s.handleGetAnalysis)
			r.Post("/{analysisID}/reports", s.handleGenerateReports)
			r.Get("/{analysisID}/reports/{format}", s.handleDownloadReport)
		})
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"templates": s.pipeline.Catalog().Len(),
	})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": s.pipeline.Catalog().Entries(),
	})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
