package extraction

import (
	"context"

	"github.com/resemantic/resemantic/internal/domain/models"
	"github.com/resemantic/resemantic/internal/ports"
)

// NoReasoningContent is the fallback unit content when a V2 turn
// carries no assistant reasoning.
const NoReasoningContent = "No reasoning provided"

// ExtractorV2 is the two-extraction variant: the user side narrows to
// durable facts, the assistant side analyzes the reasoning trace
// instead of the reply (the reply is archived raw).
type ExtractorV2 struct {
	llm                ports.LLMClient
	contextMaxMessages int
}

func NewExtractorV2(llmClient ports.LLMClient, contextMaxMessages int) *ExtractorV2 {
	return &ExtractorV2{llm: llmClient, contextMaxMessages: contextMaxMessages}
}

// ExtractUserSU produces the facts-focused semantic unit for the user
// message.
func (e *ExtractorV2) ExtractUserSU(ctx context.Context, batch *models.TurnBatch) (*models.SemanticUnit, error) {
	conversationContext := BuildContext(batch.ConversationHistory, e.contextMaxMessages)
	prompt := buildUserFactsPrompt(batch.UserMessage, conversationContext)

	raw, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	payload, err := decodeSU(raw)
	if err != nil {
		return nil, err
	}
	return buildSemanticUnit(payload, batch, batch.UserMessageID, batch.UserMessageID, models.RoleUser)
}

// ExtractReasoningSU produces the semantic unit describing the logic of
// the assistant's reasoning. When no reasoning was captured it emits a
// placeholder unit without calling the model. Either way the unit is
// keyed to the assistant message, which is always archived, so its
// propositions stay joinable through the lineage tables.
func (e *ExtractorV2) ExtractReasoningSU(ctx context.Context, batch *models.TurnBatch) (*models.SemanticUnit, error) {
	if batch.AssistantReasoning == "" {
		return &models.SemanticUnit{
			UnitID:    batch.AssistantMessageID,
			MessageID: batch.AssistantMessageID,
			Content:   NoReasoningContent,
			Speaker:   models.RoleAssistant,
			Timestamp: batch.Timestamp,
			Type:      models.UnitTypeResponse,
		}, nil
	}

	conversationContext := assistantContext(batch, e.contextMaxMessages)
	prompt := buildReasoningExtractionPrompt(batch.AssistantReasoning, conversationContext)

	raw, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	payload, err := decodeSU(raw)
	if err != nil {
		return nil, err
	}
	return buildSemanticUnit(payload, batch, batch.AssistantMessageID, batch.AssistantMessageID, models.RoleAssistant)
}
