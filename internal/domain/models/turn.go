package models

import "time"

// HistoryItem is one prior utterance in the conversation history.
type HistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnBatch is the self-contained input of one pipeline invocation:
// one user/assistant exchange plus optional reasoning and the prior
// history used only for prompt context.
type TurnBatch struct {
	UserMessage         string        `json:"user_message"`
	AssistantMessage    string        `json:"assistant_message"`
	AssistantReasoning  string        `json:"assistant_reasoning,omitempty"`
	ConversationHistory []HistoryItem `json:"conversation_history"`
	Timestamp           time.Time     `json:"timestamp"`
	UserMessageID       string        `json:"user_message_id"`
	AssistantMessageID  string        `json:"assistant_message_id"`
}

// TurnTimings carries per-stage elapsed seconds.
type TurnTimings struct {
	Stage1User      float64 `json:"stage1_user_time"`
	Stage1Assistant float64 `json:"stage1_assistant_time"`
	Stage2User      float64 `json:"stage2_user_time"`
	Stage2Assistant float64 `json:"stage2_assistant_time"`
	Embedding       float64 `json:"embedding_time"`
	Storage         float64 `json:"storage_time"`
	EdgeCreation    float64 `json:"edge_creation_time"`
}

// TurnResult is the summary emitted by one pipeline invocation. It is
// always produced, even on partial failure; Error carries the first
// failure point when set.
type TurnResult struct {
	UserSemanticUnit      *SemanticUnit  `json:"user_semantic_unit"`
	AssistantSemanticUnit *SemanticUnit  `json:"assistant_semantic_unit"`
	UserPropositions      []*Proposition `json:"user_propositions"`
	AssistantPropositions []*Proposition `json:"assistant_propositions"`
	StoredPropositionIDs  []string       `json:"stored_proposition_ids"`
	Timings               TurnTimings    `json:"timings"`
	Error                 string         `json:"error,omitempty"`
}

// Propositions returns the committed ordering: user propositions first,
// then assistant propositions, each preserving internal order. This
// ordering is the contract the temporal chain relies on.
func (r *TurnResult) Propositions() []*Proposition {
	out := make([]*Proposition, 0, len(r.UserPropositions)+len(r.AssistantPropositions))
	out = append(out, r.UserPropositions...)
	out = append(out, r.AssistantPropositions...)
	return out
}
