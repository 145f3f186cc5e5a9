package extraction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/resemantic/resemantic/internal/domain"
	"github.com/resemantic/resemantic/internal/domain/models"
	"github.com/resemantic/resemantic/internal/llm"
	"github.com/resemantic/resemantic/internal/ports"
)

// maxPropositionsPerUnit bounds Stage 2 output; a count past this is a
// runaway model, not a rich message.
const maxPropositionsPerUnit = 10

type propositionPayload struct {
	Content  string   `json:"content"`
	Concepts []string `json:"concepts"`
}

// Propositionalizer decomposes one semantic unit into atomic
// propositions. The propositions inherit the unit's classification and
// block metadata; only concepts may be refined per proposition.
type Propositionalizer struct {
	llm ports.LLMClient
}

func NewPropositionalizer(llmClient ports.LLMClient) *Propositionalizer {
	return &Propositionalizer{llm: llmClient}
}

// Decompose returns the ordered proposition list for one unit. An empty
// unit produces an empty list without a model call.
func (p *Propositionalizer) Decompose(ctx context.Context, su *models.SemanticUnit) ([]*models.Proposition, error) {
	if su.IsEmpty() {
		return nil, nil
	}

	serialized, err := json.Marshal(su)
	if err != nil {
		return nil, fmt.Errorf("serialize semantic unit: %w", err)
	}

	raw, err := p.llm.Complete(ctx, buildPropositionPrompt(string(serialized)))
	if err != nil {
		return nil, err
	}

	payloads, err := llm.DecodeArray[propositionPayload](raw)
	if err != nil {
		return nil, err
	}
	if len(payloads) > maxPropositionsPerUnit {
		return nil, fmt.Errorf("%w: %d propositions for one unit", domain.ErrLLMOutput, len(payloads))
	}

	props := make([]*models.Proposition, 0, len(payloads))
	for _, payload := range payloads {
		if payload.Content == "" {
			return nil, fmt.Errorf("%w: proposition with empty content", domain.ErrLLMOutput)
		}
		concepts := payload.Concepts
		if len(concepts) == 0 {
			concepts = su.Concepts
		}
		props = append(props, &models.Proposition{
			Content:         payload.Content,
			Type:            su.Type,
			Certainty:       su.Certainty,
			Concepts:        concepts,
			SUID:            su.UnitID,
			SourceMessageID: su.MessageID,
			Speaker:         su.Speaker,
			Timestamp:       su.Timestamp,
			BlockMetadata:   su.BlockMetadata,
			ActivationCount: models.DefaultActivationCount,
			CoherenceScore:  models.DefaultCoherenceScore,
		})
	}
	return props, nil
}
