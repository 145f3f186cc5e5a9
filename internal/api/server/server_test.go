package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resemantic/resemantic/internal/application/extraction"
	"github.com/resemantic/resemantic/internal/config"
	"github.com/resemantic/resemantic/internal/domain"
	"github.com/resemantic/resemantic/internal/domain/models"
	"github.com/resemantic/resemantic/internal/ports"
)

type stubLLM struct{}

func (stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return `{"content": "stub", "type": "statement", "narrative_role": "core", "certainty": "high", "concepts": ["stub"], "block_metadata": {}}`, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) (*ports.EmbeddingResult, error) {
	return &ports.EmbeddingResult{Embedding: []float32{0.1, 0.2}, Dimensions: 2}, nil
}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*ports.EmbeddingResult, error) {
	out := make([]*ports.EmbeddingResult, len(texts))
	for i := range texts {
		out[i] = &ports.EmbeddingResult{Embedding: []float32{0.1, 0.2}, Dimensions: 2}
	}
	return out, nil
}

func (stubEmbedder) GetDimensions() int { return 2 }

type stubGraph struct {
	getFn       func(id string) (*models.Proposition, error)
	neighborsFn func(id string) ([]models.Neighbor, error)
	countErr    error
}

func (s *stubGraph) SetupSchema(ctx context.Context) error { return nil }

func (s *stubGraph) CreateProposition(ctx context.Context, p *models.Proposition) (*models.Proposition, error) {
	return p, nil
}

func (s *stubGraph) UpdateProposition(ctx context.Context, id string, patch models.PropositionPatch) error {
	return nil
}

func (s *stubGraph) GetProposition(ctx context.Context, id string) (*models.Proposition, error) {
	if s.getFn != nil {
		return s.getFn(id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubGraph) CreateTemporalEdge(ctx context.Context, fromID, toID string) error { return nil }

func (s *stubGraph) CreateSemanticEdge(ctx context.Context, aID, bID string, weight float64, createdBy string) error {
	return nil
}

func (s *stubGraph) VectorSearch(ctx context.Context, query []float32, k int, minSimilarity float64) ([]models.Neighbor, error) {
	return nil, nil
}

func (s *stubGraph) CountPropositions(ctx context.Context) (int64, error) { return 7, s.countErr }

func (s *stubGraph) CountEdges(ctx context.Context) (map[string]int64, error) {
	return map[string]int64{"NEXT": 4, "COHERENT": 2}, nil
}

func (s *stubGraph) GetSemanticNeighbors(ctx context.Context, id string, minWeight float64) ([]models.Neighbor, error) {
	if s.neighborsFn != nil {
		return s.neighborsFn(id)
	}
	return nil, nil
}

type stubArchive struct {
	lineageFn func(id string) (*models.Lineage, error)
	statsErr  error
}

func (s *stubArchive) StoreMessage(ctx context.Context, msg *models.Message) error        { return nil }
func (s *stubArchive) StoreSemanticUnit(ctx context.Context, su *models.SemanticUnit) error { return nil }
func (s *stubArchive) StoreProposition(ctx context.Context, p *models.Proposition) error  { return nil }

func (s *stubArchive) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	return nil, domain.ErrNotFound
}

func (s *stubArchive) GetSemanticUnit(ctx context.Context, unitID string) (*models.SemanticUnit, error) {
	return nil, domain.ErrNotFound
}

func (s *stubArchive) GetSemanticUnitsByMessage(ctx context.Context, messageID string) ([]*models.SemanticUnit, error) {
	return nil, nil
}

func (s *stubArchive) GetProposition(ctx context.Context, id string) (*models.Proposition, error) {
	return nil, domain.ErrNotFound
}

func (s *stubArchive) GetFullLineage(ctx context.Context, propositionID string) (*models.Lineage, error) {
	if s.lineageFn != nil {
		return s.lineageFn(propositionID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubArchive) Stats(ctx context.Context) (*models.ArchiveStats, error) {
	return &models.ArchiveStats{Messages: 2, SemanticUnits: 2, Propositions: 5}, s.statsErr
}

func (s *stubArchive) Close() error { return nil }

type stubIDs struct{ next int }

func (s *stubIDs) GenerateMessageID() string {
	s.next++
	return "rm_" + strings.Repeat("x", s.next)
}
func (s *stubIDs) GenerateUnitID() string        { return "rsu_stub" }
func (s *stubIDs) GeneratePropositionID() string { return "prop_stub" }

// newTestServer wires the API over stub stores. The worker pool is not
// started, so enqueued turns stay queued.
func newTestServer(t *testing.T, graph *stubGraph, archive *stubArchive, queueSize int) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	pipeline := extraction.NewPipeline(stubLLM{}, stubEmbedder{}, graph, archive, extraction.Config{
		Version:             extraction.VersionV1,
		ContextMaxMessages:  2,
		SimilarityThreshold: 0.4,
		TopKNeighbors:       10,
	})
	pool := extraction.NewWorkerPool(pipeline, 1, queueSize, nil)
	return NewServer(cfg, pool, graph, archive, &stubIDs{})
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateTurn_Accepted(t *testing.T) {
	srv := newTestServer(t, &stubGraph{}, &stubArchive{}, 8)

	rec := postJSON(t, srv.Handler(), "/api/v1/turns", `{
		"user_message": "am decis să folosesc webhook retry",
		"assistant_message": "Good choice."
	}`)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, true, resp["queued"])
	require.NotEmpty(t, resp["user_message_id"])
	require.NotEmpty(t, resp["assistant_message_id"])
	require.NotEqual(t, resp["user_message_id"], resp["assistant_message_id"])
}

func TestCreateTurn_KeepsSuppliedIDs(t *testing.T) {
	srv := newTestServer(t, &stubGraph{}, &stubArchive{}, 8)

	rec := postJSON(t, srv.Handler(), "/api/v1/turns", `{
		"user_message": "hello",
		"assistant_message": "hi",
		"user_message_id": "msg_u1",
		"assistant_message_id": "msg_a1"
	}`)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "msg_u1", resp["user_message_id"])
	require.Equal(t, "msg_a1", resp["assistant_message_id"])
}

func TestCreateTurn_MissingFields(t *testing.T) {
	srv := newTestServer(t, &stubGraph{}, &stubArchive{}, 8)

	rec := postJSON(t, srv.Handler(), "/api/v1/turns", `{"user_message": "only one side"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTurn_InvalidBody(t *testing.T) {
	srv := newTestServer(t, &stubGraph{}, &stubArchive{}, 8)

	rec := postJSON(t, srv.Handler(), "/api/v1/turns", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTurn_QueueFull(t *testing.T) {
	srv := newTestServer(t, &stubGraph{}, &stubArchive{}, 1)
	body := `{"user_message": "a", "assistant_message": "b"}`

	require.Equal(t, http.StatusAccepted, postJSON(t, srv.Handler(), "/api/v1/turns", body).Code)
	require.Equal(t, http.StatusServiceUnavailable, postJSON(t, srv.Handler(), "/api/v1/turns", body).Code)
}

func TestGetProposition(t *testing.T) {
	graph := &stubGraph{getFn: func(id string) (*models.Proposition, error) {
		if id == "p1" {
			return &models.Proposition{ID: "p1", Content: "a stored statement"}, nil
		}
		return nil, domain.ErrNotFound
	}}
	srv := newTestServer(t, graph, &stubArchive{}, 8)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/propositions/p1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var prop models.Proposition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prop))
	require.Equal(t, "a stored statement", prop.Content)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/propositions/missing", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLineage(t *testing.T) {
	archive := &stubArchive{lineageFn: func(id string) (*models.Lineage, error) {
		return &models.Lineage{
			Message:      &models.Message{ID: "msg_user"},
			SemanticUnit: &models.SemanticUnit{UnitID: "msg_user", Content: "unit"},
			Proposition:  &models.Proposition{ID: id, SUID: "msg_user"},
		}, nil
	}}
	srv := newTestServer(t, &stubGraph{}, archive, 8)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/propositions/p1/lineage", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var lineage models.Lineage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lineage))
	require.Equal(t, "msg_user", lineage.Message.ID)
	require.Equal(t, "p1", lineage.Proposition.ID)
}

func TestStats(t *testing.T) {
	srv := newTestServer(t, &stubGraph{}, &stubArchive{}, 8)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Graph struct {
			Propositions int64            `json:"propositions"`
			Edges        map[string]int64 `json:"edges"`
		} `json:"graph"`
		Archive models.ArchiveStats `json:"archive"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 7, resp.Graph.Propositions)
	require.EqualValues(t, 4, resp.Graph.Edges["NEXT"])
	require.EqualValues(t, 5, resp.Archive.Propositions)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubGraph{}, &stubArchive{}, 8)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth_GraphDown(t *testing.T) {
	graph := &stubGraph{countErr: domain.ErrStoreTransport}
	srv := newTestServer(t, graph, &stubArchive{}, 8)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
