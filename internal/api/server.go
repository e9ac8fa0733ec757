// Package api is the HTTP surface of the service: generation runs, document
// persistence, paper import and operational stats, all behind bearer-token
// auth resolved against the auth service.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"paperforge/internal/auth"
	"paperforge/internal/config"
	"paperforge/internal/knowledge"
	"paperforge/internal/llm"
	"paperforge/internal/papers"
	"paperforge/internal/pipeline"
	"paperforge/internal/store"
)

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	store        *store.Client
	auth         *auth.Client
	knowledge    *knowledge.Base
	analyzer     *papers.Analyzer
	llmStats     *llm.Stats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(
	orch *pipeline.Orchestrator,
	docs *store.Client,
	authClient *auth.Client,
	kb *knowledge.Base,
	analyzer *papers.Analyzer,
	llmStats *llm.Stats,
	log *slog.Logger,
	cfg config.Config,
) *Server {
	s := &Server{
		orchestrator: orch,
		store:        docs,
		auth:         authClient,
		knowledge:    kb,
		analyzer:     analyzer,
		llmStats:     llmStats,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.auth, s.log))

		r.Post("/api/generate", s.handleGenerate)
		r.Get("/api/runs/{runID}/status", s.handleRunStatus)
		r.Post("/api/runs/{runID}/cancel", s.handleCancelRun)
		r.Get("/api/runs/{runID}/document", s.handleRunDocument)
		r.Get("/api/runs/{runID}/export/{format}", s.handleExport)

		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
		r.Get("/api/documents/{docID}/export/{format}", s.handleExportDocument)

		r.Post("/api/papers/import", s.handleImportPaper)
		r.Get("/api/knowledge", s.handleSearchKnowledge)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
