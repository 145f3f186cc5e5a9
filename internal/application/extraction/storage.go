package extraction

import (
	"context"
	"fmt"

	"github.com/resemantic/resemantic/internal/adapters/metrics"
	"github.com/resemantic/resemantic/internal/domain/models"
	"github.com/resemantic/resemantic/internal/ports"
)

// storePropositions commits one turn in the fixed order: archive
// messages, archive units, then per proposition graph-create followed by
// archive-upsert keyed by the graph id. An archive row without a graph
// node is therefore the only possible partial state.
func (p *Pipeline) storePropositions(ctx context.Context, batch *models.TurnBatch, result *models.TurnResult, props []*models.Proposition, embeddings []*ports.EmbeddingResult) error {
	messages := []*models.Message{
		{ID: batch.UserMessageID, Role: models.RoleUser, Content: batch.UserMessage, Timestamp: batch.Timestamp},
		{ID: batch.AssistantMessageID, Role: models.RoleAssistant, Content: batch.AssistantMessage, Timestamp: batch.Timestamp},
	}
	if batch.AssistantReasoning != "" {
		messages = append(messages, &models.Message{
			ID:        models.ReasoningMessageID(batch.AssistantMessageID),
			Role:      models.RoleAssistantReasoning,
			Content:   batch.AssistantReasoning,
			Timestamp: batch.Timestamp,
		})
	}
	for _, msg := range messages {
		if err := p.archive.StoreMessage(ctx, msg); err != nil {
			return fmt.Errorf("archive message %s: %w", msg.ID, err)
		}
	}

	for _, su := range []*models.SemanticUnit{result.UserSemanticUnit, result.AssistantSemanticUnit} {
		if su.IsEmpty() {
			continue
		}
		if err := p.archive.StoreSemanticUnit(ctx, su); err != nil {
			return fmt.Errorf("archive semantic unit %s: %w", su.UnitID, err)
		}
	}

	for i, prop := range props {
		prop.Embedding = embeddings[i].Embedding

		stored, err := p.graph.CreateProposition(ctx, prop)
		if err != nil {
			return fmt.Errorf("graph proposition %d: %w", i, err)
		}
		prop.ID = stored.ID

		if err := p.archive.StoreProposition(ctx, prop); err != nil {
			return fmt.Errorf("archive proposition %s: %w", stored.ID, err)
		}
		result.StoredPropositionIDs = append(result.StoredPropositionIDs, stored.ID)
		metrics.PropositionsStored.Inc()
	}
	return nil
}

// createEdges links the committed propositions: a temporal chain over
// adjacent ids in commit order, then a semantic neighborhood per
// proposition via vector kNN. The chain never crosses turn boundaries
// because it only sees this turn's ids.
func (p *Pipeline) createEdges(ctx context.Context, ids []string, props []*models.Proposition) error {
	for i := 1; i < len(ids); i++ {
		if err := p.graph.CreateTemporalEdge(ctx, ids[i-1], ids[i]); err != nil {
			return fmt.Errorf("temporal edge %s -> %s: %w", ids[i-1], ids[i], err)
		}
	}

	// k+1 compensates for kNN returning the source node itself.
	k := p.cfg.TopKNeighbors + 1
	for i, id := range ids {
		neighbors, err := p.graph.VectorSearch(ctx, props[i].Embedding, k, p.cfg.SimilarityThreshold)
		if err != nil {
			return fmt.Errorf("vector search for %s: %w", id, err)
		}
		for _, neighbor := range neighbors {
			if neighbor.ID == id {
				continue
			}
			if err := p.graph.CreateSemanticEdge(ctx, id, neighbor.ID, neighbor.Similarity, models.EdgeCreatedByExtraction); err != nil {
				return fmt.Errorf("semantic edge %s -> %s: %w", id, neighbor.ID, err)
			}
		}
	}
	return nil
}
