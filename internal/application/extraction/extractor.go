package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/resemantic/resemantic/internal/domain"
	"github.com/resemantic/resemantic/internal/domain/models"
	"github.com/resemantic/resemantic/internal/llm"
	"github.com/resemantic/resemantic/internal/ports"
)

// suPayload is the raw Stage 1 model output. block_metadata is kept raw
// so that string-valued payloads can be rejected instead of silently
// double-encoded.
type suPayload struct {
	Content       string          `json:"content"`
	Type          string          `json:"type"`
	NarrativeRole string          `json:"narrative_role"`
	Certainty     string          `json:"certainty"`
	Concepts      []string        `json:"concepts"`
	Entities      []string        `json:"entities"`
	BlockMetadata json.RawMessage `json:"block_metadata"`
}

// decodeBlockMetadata parses the raw block_metadata value. A JSON string
// is a contract violation (the double-encoding hazard); anything else
// must be an object. Empty objects collapse to nil.
func decodeBlockMetadata(raw json.RawMessage) (*models.BlockMetadata, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '"' {
		return nil, fmt.Errorf("%w: block_metadata must be a structured object, not a string", domain.ErrSchemaValidation)
	}

	var block models.BlockMetadata
	if err := json.Unmarshal(trimmed, &block); err != nil {
		return nil, fmt.Errorf("%w: block_metadata: %v", domain.ErrSchemaValidation, err)
	}
	if block.IsEmpty() {
		return nil, nil
	}
	return &block, nil
}

// buildSemanticUnit turns a validated payload into a SemanticUnit.
func buildSemanticUnit(payload *suPayload, batch *models.TurnBatch, unitID, messageID, speaker string) (*models.SemanticUnit, error) {
	if payload.Content == "" {
		return nil, fmt.Errorf("%w: semantic unit content is empty", domain.ErrSchemaValidation)
	}

	block, err := decodeBlockMetadata(payload.BlockMetadata)
	if err != nil {
		return nil, err
	}

	unitType := models.NormalizeUnitType(payload.Type)

	// A decision without a reason is a silent-pass hazard; fail loudly.
	if unitType == models.UnitTypeDecision || block.HasDecision() {
		if block == nil || block.DecisionReason == "" {
			return nil, fmt.Errorf("%w: decision extracted without decision_reason", domain.ErrSchemaValidation)
		}
	}

	return &models.SemanticUnit{
		UnitID:        unitID,
		MessageID:     messageID,
		Content:       payload.Content,
		Speaker:       speaker,
		Timestamp:     batch.Timestamp,
		Type:          unitType,
		NarrativeRole: payload.NarrativeRole,
		Certainty:     payload.Certainty,
		Concepts:      payload.Concepts,
		Entities:      payload.Entities,
		BlockMetadata: block,
	}, nil
}

// Extractor runs Stage 1 for both sides of a turn.
type Extractor struct {
	llm                ports.LLMClient
	contextMaxMessages int
}

func NewExtractor(llmClient ports.LLMClient, contextMaxMessages int) *Extractor {
	return &Extractor{llm: llmClient, contextMaxMessages: contextMaxMessages}
}

func decodeSU(raw string) (*suPayload, error) {
	return llm.DecodeObject[suPayload](raw)
}

func (e *Extractor) complete(ctx context.Context, prompt string) (*suPayload, error) {
	raw, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return decodeSU(raw)
}

// ExtractUserSU produces the semantic unit for the user message. The
// unit id is the caller-supplied message id.
func (e *Extractor) ExtractUserSU(ctx context.Context, batch *models.TurnBatch) (*models.SemanticUnit, error) {
	conversationContext := BuildContext(batch.ConversationHistory, e.contextMaxMessages)
	prompt := buildUserExtractionPrompt(batch.UserMessage, conversationContext)

	payload, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return buildSemanticUnit(payload, batch, batch.UserMessageID, batch.UserMessageID, models.RoleUser)
}

// ExtractAssistantSU produces the semantic unit for the assistant
// message. The context window is the user extractor's window plus the
// just-processed user message; reasoning, when present, is folded in.
func (e *Extractor) ExtractAssistantSU(ctx context.Context, batch *models.TurnBatch) (*models.SemanticUnit, error) {
	conversationContext := assistantContext(batch, e.contextMaxMessages)
	prompt := buildAssistantExtractionPrompt(batch.AssistantMessage, batch.AssistantReasoning, conversationContext)

	payload, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return buildSemanticUnit(payload, batch, batch.AssistantMessageID, batch.AssistantMessageID, models.RoleAssistant)
}

// assistantContext appends the current user message to the shared
// context window.
func assistantContext(batch *models.TurnBatch, maxMessages int) string {
	base := BuildContext(batch.ConversationHistory, maxMessages)
	if base == StartOfConversation {
		return "User: " + batch.UserMessage
	}
	return base + "\nUser: " + batch.UserMessage
}
