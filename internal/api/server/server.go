package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/resemantic/resemantic/internal/application/extraction"
	"github.com/resemantic/resemantic/internal/config"
	"github.com/resemantic/resemantic/internal/ports"
)

const ReadTimeout = 30 * time.Second

// Server exposes the turn-ingestion API. POST /api/v1/turns enqueues a
// pipeline invocation and returns immediately; the chat turn is never
// blocked on pipeline outcome.
type Server struct {
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
}

func NewServer(cfg *config.Config, pool *extraction.WorkerPool, graph ports.GraphStore, archive ports.ArchiveStore, ids ports.IDGenerator) *Server {
	router := chi.NewRouter()

	router.Use(Recovery)
	router.Use(Logger)

	healthH := &HealthHandler{
		GraphPing:   func(ctx context.Context) (int64, error) { return graph.CountPropositions(ctx) },
		ArchivePing: func(ctx context.Context) error { _, err := archive.Stats(ctx); return err },
	}
	router.Get("/health", healthH.Readiness)
	router.Get("/health/live", healthH.Liveness)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		turnH := NewTurnHandler(pool, ids)
		r.Post("/turns", turnH.Create)

		propH := NewPropositionHandler(graph, archive)
		r.Get("/propositions/{id}", propH.Get)
		r.Get("/propositions/{id}/lineage", propH.Lineage)
		r.Get("/propositions/{id}/neighbors", propH.Neighbors)

		statsH := NewStatsHandler(graph, archive)
		r.Get("/stats", statsH.Get)
	})

	return &Server{cfg: cfg, router: router}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: ReadTimeout,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
