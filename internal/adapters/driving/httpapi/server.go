// Package httpapi exposes the knowledge base over a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/kindex/internal/core/ports/driving"
	"github.com/custodia-labs/kindex/internal/logger"
)

// shutdownTimeout bounds graceful shutdown after the context is cancelled.
const shutdownTimeout = 10 * time.Second

// Server holds the HTTP server dependencies.
type Server struct {
	kb driving.KnowledgeBase
}

// New creates an API server backed by kb.
func New(kb driving.KnowledgeBase) *Server {
	return &Server{kb: kb}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.Search)

		r.Get("/documents", s.ListDocuments)
		r.Get("/documents/{id}", s.GetDocument)
		r.Delete("/documents/{id}", s.DeleteDocument)
		r.Get("/documents/{id}/content", s.GetDocumentContent)
		r.Get("/documents/{id}/similar", s.GetSimilarDocuments)

		r.Get("/graph", s.GetGraph)

		r.Post("/index", s.Index)
		r.Get("/progress", s.GetProgress)
		r.Post("/progress/pause", s.PauseIndexing)
		r.Post("/progress/resume", s.ResumeIndexing)

		r.Get("/watches", s.ListWatches)
		r.Post("/watches", s.StartWatch)
		r.Delete("/watches", s.StopWatch)
	})

	return r
}

// Run serves the API on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("HTTP API listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
