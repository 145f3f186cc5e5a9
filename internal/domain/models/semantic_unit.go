package models

import "time"

// Semantic unit types. Unknown values from the model degrade to
// UnitTypeOther instead of failing the parse.
const (
	UnitTypeQuestion    = "question"
	UnitTypeStatement   = "statement"
	UnitTypeDecision    = "decision"
	UnitTypeResource    = "resource"
	UnitTypeDocument    = "document"
	UnitTypeResponse    = "response"
	UnitTypeExplanation = "explanation"
	UnitTypeOther       = "other"
)

// Narrative roles
const (
	NarrativeCore       = "core"
	NarrativeSupportive = "supportive"
	NarrativePeripheral = "peripheral"
)

// Certainty levels
const (
	CertaintyHigh   = "high"
	CertaintyMedium = "medium"
	CertaintyLow    = "low"
)

// NormalizeUnitType maps a model-emitted type string onto the known set,
// degrading unknown values to UnitTypeOther.
func NormalizeUnitType(t string) string {
	switch t {
	case UnitTypeQuestion, UnitTypeStatement, UnitTypeDecision, UnitTypeResource,
		UnitTypeDocument, UnitTypeResponse, UnitTypeExplanation, UnitTypeOther:
		return t
	}
	return UnitTypeOther
}

// BlockMetadata carries the optional structured annotations extracted for
// resource, decision and document blocks. All fields are optional except
// DecisionReason, which is required whenever a decision is extracted.
type BlockMetadata struct {
	ResourceURL      string `json:"resource_url,omitempty"`
	ResourceType     string `json:"resource_type,omitempty"`
	ResourceTitle    string `json:"resource_title,omitempty"`
	DiscussedContext string `json:"discussed_context,omitempty"`

	DecisionChoice       string   `json:"decision_choice,omitempty"`
	DecisionReason       string   `json:"decision_reason,omitempty"`
	DecisionAlternatives []string `json:"decision_alternatives,omitempty"`
	DecisionConfidence   string   `json:"decision_confidence,omitempty"`

	DocFilename    string   `json:"doc_filename,omitempty"`
	DocLocation    string   `json:"doc_location,omitempty"`
	DocPurpose     string   `json:"doc_purpose,omitempty"`
	DocKeySettings []string `json:"doc_key_settings,omitempty"`
}

// IsEmpty reports whether no block fields are set.
func (b *BlockMetadata) IsEmpty() bool {
	if b == nil {
		return true
	}
	return b.ResourceURL == "" && b.ResourceType == "" && b.ResourceTitle == "" &&
		b.DiscussedContext == "" && b.DecisionChoice == "" && b.DecisionReason == "" &&
		len(b.DecisionAlternatives) == 0 && b.DecisionConfidence == "" &&
		b.DocFilename == "" && b.DocLocation == "" && b.DocPurpose == "" &&
		len(b.DocKeySettings) == 0
}

// HasDecision reports whether any decision field is set.
func (b *BlockMetadata) HasDecision() bool {
	if b == nil {
		return false
	}
	return b.DecisionChoice != "" || b.DecisionReason != "" ||
		len(b.DecisionAlternatives) > 0 || b.DecisionConfidence != ""
}

// SemanticUnit is the Stage 1 output: a reformulated, self-contained
// description of one message plus classification metadata. Immutable
// after commit; lives in the archive only.
type SemanticUnit struct {
	UnitID              string         `json:"unit_id"`
	MessageID           string         `json:"message_id"`
	Content             string         `json:"content"`
	Speaker             string         `json:"speaker"`
	Timestamp           time.Time      `json:"timestamp"`
	Type                string         `json:"type"`
	NarrativeRole       string         `json:"narrative_role"`
	Certainty           string         `json:"certainty"`
	Concepts            []string       `json:"concepts"`
	Entities            []string       `json:"entities,omitempty"`
	Decisions           []string       `json:"decisions,omitempty"`
	ContextDependencies []string       `json:"context_dependencies,omitempty"`
	Impact              string         `json:"impact,omitempty"`
	Relevance           string         `json:"relevance,omitempty"`
	BlockMetadata       *BlockMetadata `json:"block_metadata,omitempty"`
}

// IsEmpty reports whether the unit is absent or carries no extraction
// output, as produced by a failed Stage 1.
func (su *SemanticUnit) IsEmpty() bool {
	return su == nil || su.Content == ""
}
