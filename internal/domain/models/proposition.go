package models

import "time"

// Proposition lifecycle defaults
const (
	DefaultActivationCount = 0
	DefaultCoherenceScore  = 0.5
)

// Edge provenance values
const (
	EdgeCreatedByExtraction = "extraction"
	EdgeCreatedBySleepCycle = "sleep_cycle"
)

// Proposition is an atomic, self-contained statement derived from exactly
// one semantic unit. Content and embedding are immutable after creation;
// only the lifecycle fields may change. Propositions are never deleted,
// weak ones are marked instead.
type Proposition struct {
	ID              string         `json:"id"`
	Content         string         `json:"content"`
	Embedding       []float32      `json:"embedding,omitempty"`
	Type            string         `json:"type"`
	Certainty       string         `json:"certainty"`
	Concepts        []string       `json:"concepts"`
	SUID            string         `json:"su_id"`
	SourceMessageID string         `json:"source_message_id"`
	Speaker         string         `json:"speaker"`
	Timestamp       time.Time      `json:"timestamp"`
	BlockMetadata   *BlockMetadata `json:"block_metadata,omitempty"`

	// Lifecycle fields, mutable via PropositionPatch only
	ActivationCount int        `json:"activation_count"`
	CoherenceScore  float64    `json:"coherence_score"`
	IsWeak          bool       `json:"is_weak"`
	WeaknessReason  *string    `json:"weakness_reason,omitempty"`
	LastAccessed    *time.Time `json:"last_accessed,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// PropositionPatch updates lifecycle fields only. Nil fields are left
// untouched.
type PropositionPatch struct {
	ActivationCount *int       `json:"activation_count,omitempty"`
	CoherenceScore  *float64   `json:"coherence_score,omitempty"`
	IsWeak          *bool      `json:"is_weak,omitempty"`
	WeaknessReason  *string    `json:"weakness_reason,omitempty"`
	LastAccessed    *time.Time `json:"last_accessed,omitempty"`
}

// IsZero reports whether the patch carries no changes.
func (p PropositionPatch) IsZero() bool {
	return p.ActivationCount == nil && p.CoherenceScore == nil &&
		p.IsWeak == nil && p.WeaknessReason == nil && p.LastAccessed == nil
}

// Neighbor is one vector search or semantic neighborhood result.
type Neighbor struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Lineage joins a proposition back to its semantic unit and message
// across the archive tables.
type Lineage struct {
	Message      *Message      `json:"message"`
	SemanticUnit *SemanticUnit `json:"semantic_unit"`
	Proposition  *Proposition  `json:"proposition"`
}

// ArchiveStats summarizes archive row counts.
type ArchiveStats struct {
	Messages      int64 `json:"messages"`
	SemanticUnits int64 `json:"semantic_units"`
	Propositions  int64 `json:"propositions"`
}
