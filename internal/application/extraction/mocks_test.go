package extraction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/resemantic/resemantic/internal/domain"
	"github.com/resemantic/resemantic/internal/domain/models"
	"github.com/resemantic/resemantic/internal/ports"
)

// mockLLM answers prompts via a routing function and records every
// prompt it saw.
type mockLLM struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (m *mockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.respond == nil {
		return "", fmt.Errorf("%w: no responder configured", domain.ErrLLMOutput)
	}
	return m.respond(prompt)
}

// scriptedLLM routes prompts by substring match, the way the pipeline
// tests distinguish Stage 1 from Stage 2 calls.
func scriptedLLM(userSU, assistantSU string, propsByContent map[string]string) *mockLLM {
	return &mockLLM{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "decomposing a semantic unit") {
			for needle, response := range propsByContent {
				if strings.Contains(prompt, needle) {
					return response, nil
				}
			}
			return `[]`, nil
		}
		if strings.Contains(prompt, "user message") {
			return userSU, nil
		}
		return assistantSU, nil
	}}
}

// suJSON builds a minimal valid Stage 1 response.
func suJSON(content, unitType string) string {
	return fmt.Sprintf(`{"content": %q, "type": %q, "narrative_role": "core", "certainty": "high", "concepts": ["test concept"], "block_metadata": {}}`, content, unitType)
}

// propsJSON builds a Stage 2 response with n propositions derived from
// the given prefix.
func propsJSON(prefix string, n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"content": "%s proposition %d", "concepts": ["%s"]}`, prefix, i, prefix)
	}
	return "[" + strings.Join(items, ",") + "]"
}

// mockEmbedder produces deterministic fixed-dimension vectors.
type mockEmbedder struct {
	dims    int
	embedFn func(texts []string) ([]*ports.EmbeddingResult, error)
}

func (m *mockEmbedder) vector(seed int) []float32 {
	v := make([]float32, m.dims)
	for i := range v {
		v[i] = float32(seed+i) / 100
	}
	return v
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (*ports.EmbeddingResult, error) {
	results, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*ports.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(texts)
	}
	results := make([]*ports.EmbeddingResult, len(texts))
	for i := range texts {
		results[i] = &ports.EmbeddingResult{Embedding: m.vector(i), Dimensions: m.dims}
	}
	return results, nil
}

func (m *mockEmbedder) GetDimensions() int { return m.dims }

type semanticEdgeCall struct {
	a, b      string
	weight    float64
	createdBy string
}

// mockGraph records writes and mints sequential ids p0, p1, ...
type mockGraph struct {
	mu            sync.Mutex
	created       []*models.Proposition
	temporalEdges [][2]string
	semanticEdges []semanticEdgeCall

	createErr error
	searchFn  func(query []float32, k int, minSimilarity float64) ([]models.Neighbor, error)
}

func (m *mockGraph) SetupSchema(ctx context.Context) error { return nil }

func (m *mockGraph) CreateProposition(ctx context.Context, p *models.Proposition) (*models.Proposition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	stored := *p
	stored.ID = fmt.Sprintf("p%d", len(m.created))
	m.created = append(m.created, &stored)
	return &stored, nil
}

func (m *mockGraph) UpdateProposition(ctx context.Context, id string, patch models.PropositionPatch) error {
	return nil
}

func (m *mockGraph) GetProposition(ctx context.Context, id string) (*models.Proposition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.created {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockGraph) CreateTemporalEdge(ctx context.Context, fromID, toID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temporalEdges = append(m.temporalEdges, [2]string{fromID, toID})
	return nil
}

func (m *mockGraph) CreateSemanticEdge(ctx context.Context, aID, bID string, weight float64, createdBy string) error {
	if aID == bID {
		return domain.ErrSelfEdge
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.semanticEdges = append(m.semanticEdges, semanticEdgeCall{a: aID, b: bID, weight: weight, createdBy: createdBy})
	return nil
}

func (m *mockGraph) VectorSearch(ctx context.Context, query []float32, k int, minSimilarity float64) ([]models.Neighbor, error) {
	if m.searchFn != nil {
		return m.searchFn(query, k, minSimilarity)
	}
	return nil, nil
}

func (m *mockGraph) CountPropositions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.created)), nil
}

func (m *mockGraph) CountEdges(ctx context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int64{
		"NEXT":     int64(len(m.temporalEdges)),
		"COHERENT": int64(len(m.semanticEdges)),
	}, nil
}

func (m *mockGraph) GetSemanticNeighbors(ctx context.Context, id string, minWeight float64) ([]models.Neighbor, error) {
	return nil, nil
}

// mockArchive records lineage writes keyed by id.
type mockArchive struct {
	mu       sync.Mutex
	messages map[string]*models.Message
	units    map[string]*models.SemanticUnit
	props    map[string]*models.Proposition

	messageErr error
}

func newMockArchive() *mockArchive {
	return &mockArchive{
		messages: make(map[string]*models.Message),
		units:    make(map[string]*models.SemanticUnit),
		props:    make(map[string]*models.Proposition),
	}
}

func (m *mockArchive) StoreMessage(ctx context.Context, msg *models.Message) error {
	if m.messageErr != nil {
		return m.messageErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ID] = msg
	return nil
}

func (m *mockArchive) StoreSemanticUnit(ctx context.Context, su *models.SemanticUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[su.UnitID] = su
	return nil
}

func (m *mockArchive) StoreProposition(ctx context.Context, p *models.Proposition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.props[p.ID] = p
	return nil
}

func (m *mockArchive) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[id]; ok {
		return msg, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockArchive) GetSemanticUnit(ctx context.Context, unitID string) (*models.SemanticUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if su, ok := m.units[unitID]; ok {
		return su, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockArchive) GetSemanticUnitsByMessage(ctx context.Context, messageID string) ([]*models.SemanticUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SemanticUnit
	for _, su := range m.units {
		if su.MessageID == messageID {
			out = append(out, su)
		}
	}
	return out, nil
}

func (m *mockArchive) GetProposition(ctx context.Context, id string) (*models.Proposition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.props[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockArchive) GetFullLineage(ctx context.Context, propositionID string) (*models.Lineage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.props[propositionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	su, ok := m.units[p.SUID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	msg, ok := m.messages[su.MessageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &models.Lineage{Message: msg, SemanticUnit: su, Proposition: p}, nil
}

func (m *mockArchive) Stats(ctx context.Context) (*models.ArchiveStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &models.ArchiveStats{
		Messages:      int64(len(m.messages)),
		SemanticUnits: int64(len(m.units)),
		Propositions:  int64(len(m.props)),
	}, nil
}

func (m *mockArchive) Close() error { return nil }
