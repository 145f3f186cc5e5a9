package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/resemantic/resemantic/internal/application/extraction"
	"github.com/resemantic/resemantic/internal/domain"
	"github.com/resemantic/resemantic/internal/domain/models"
	"github.com/resemantic/resemantic/internal/ports"
)

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}

func parseFloatQuery(r *http.Request, key string, fallback float64) float64 {
	if v := r.URL.Query().Get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// TurnHandler accepts chat turns for background extraction.
type TurnHandler struct {
	pool *extraction.WorkerPool
	ids  ports.IDGenerator
}

func NewTurnHandler(pool *extraction.WorkerPool, ids ports.IDGenerator) *TurnHandler {
	return &TurnHandler{pool: pool, ids: ids}
}

func (h *TurnHandler) Create(w http.ResponseWriter, r *http.Request) {
	var batch models.TurnBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		slog.Error("failed to decode turn request", "error", err)
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if batch.UserMessage == "" || batch.AssistantMessage == "" {
		respondError(w, "user_message and assistant_message are required", http.StatusBadRequest)
		return
	}
	if batch.Timestamp.IsZero() {
		batch.Timestamp = time.Now().UTC()
	}
	if batch.UserMessageID == "" {
		batch.UserMessageID = h.ids.GenerateMessageID()
	}
	if batch.AssistantMessageID == "" {
		batch.AssistantMessageID = h.ids.GenerateMessageID()
	}

	if !h.pool.Enqueue(&batch) {
		respondError(w, "pipeline queue is full", http.StatusServiceUnavailable)
		return
	}

	respondJSON(w, map[string]any{
		"queued":               true,
		"user_message_id":      batch.UserMessageID,
		"assistant_message_id": batch.AssistantMessageID,
	}, http.StatusAccepted)
}

// PropositionHandler reads committed propositions and their lineage.
type PropositionHandler struct {
	graph   ports.GraphStore
	archive ports.ArchiveStore
}

func NewPropositionHandler(graph ports.GraphStore, archive ports.ArchiveStore) *PropositionHandler {
	return &PropositionHandler{graph: graph, archive: archive}
}

func (h *PropositionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	prop, err := h.graph.GetProposition(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, "proposition not found", http.StatusNotFound)
			return
		}
		slog.Error("failed to get proposition", "id", id, "error", err)
		respondError(w, "failed to get proposition", http.StatusInternalServerError)
		return
	}

	respondJSON(w, prop, http.StatusOK)
}

func (h *PropositionHandler) Lineage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lineage, err := h.archive.GetFullLineage(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, "lineage not found", http.StatusNotFound)
			return
		}
		slog.Error("failed to get lineage", "id", id, "error", err)
		respondError(w, "failed to get lineage", http.StatusInternalServerError)
		return
	}

	respondJSON(w, lineage, http.StatusOK)
}

func (h *PropositionHandler) Neighbors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	minWeight := parseFloatQuery(r, "min_weight", 0)

	neighbors, err := h.graph.GetSemanticNeighbors(r.Context(), id, minWeight)
	if err != nil {
		slog.Error("failed to get neighbors", "id", id, "error", err)
		respondError(w, "failed to get neighbors", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{"id": id, "neighbors": neighbors}, http.StatusOK)
}

// StatsHandler reports counts from both stores.
type StatsHandler struct {
	graph   ports.GraphStore
	archive ports.ArchiveStore
}

func NewStatsHandler(graph ports.GraphStore, archive ports.ArchiveStore) *StatsHandler {
	return &StatsHandler{graph: graph, archive: archive}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	propositions, err := h.graph.CountPropositions(r.Context())
	if err != nil {
		slog.Error("failed to count propositions", "error", err)
		respondError(w, "failed to read graph stats", http.StatusInternalServerError)
		return
	}
	edges, err := h.graph.CountEdges(r.Context())
	if err != nil {
		slog.Error("failed to count edges", "error", err)
		respondError(w, "failed to read graph stats", http.StatusInternalServerError)
		return
	}
	archiveStats, err := h.archive.Stats(r.Context())
	if err != nil {
		slog.Error("failed to read archive stats", "error", err)
		respondError(w, "failed to read archive stats", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{
		"graph": map[string]any{
			"propositions": propositions,
			"edges":        edges,
		},
		"archive": archiveStats,
	}, http.StatusOK)
}

// HealthHandler probes both stores for readiness.
type HealthHandler struct {
	GraphPing   func(ctx context.Context) (int64, error)
	ArchivePing func(ctx context.Context) error
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if _, err := h.GraphPing(r.Context()); err != nil {
		respondError(w, "graph store unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := h.ArchivePing(r.Context()); err != nil {
		respondError(w, "archive store unavailable", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, map[string]string{"status": "ready"}, http.StatusOK)
}
