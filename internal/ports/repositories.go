package ports

import (
	"context"

	"github.com/resemantic/resemantic/internal/domain/models"
)

// GraphStore persists propositions and their edges and exposes vector
// kNN over the embedding index.
type GraphStore interface {
	// SetupSchema is idempotent: unique id constraint, secondary
	// indexes, cosine vector index of the configured dimension.
	SetupSchema(ctx context.Context) error

	// CreateProposition inserts a proposition, minting an id when none
	// is supplied, stamping created_at/updated_at and initializing
	// lifecycle fields to their defaults. Returns the stored record.
	CreateProposition(ctx context.Context, p *models.Proposition) (*models.Proposition, error)

	// UpdateProposition patches lifecycle fields only and bumps
	// updated_at.
	UpdateProposition(ctx context.Context, id string, patch models.PropositionPatch) error

	GetProposition(ctx context.Context, id string) (*models.Proposition, error)

	// CreateTemporalEdge records commit order. Idempotent.
	CreateTemporalEdge(ctx context.Context, fromID, toID string) error

	// CreateSemanticEdge records embedding similarity on the undirected
	// pair. Idempotent; refreshes weight and last_strengthened and
	// preserves coactivation_count on replay. Self-edges are rejected.
	CreateSemanticEdge(ctx context.Context, aID, bID string, weight float64, createdBy string) error

	// VectorSearch returns the top-k propositions by cosine similarity
	// with score >= minSimilarity, ordered by descending score.
	VectorSearch(ctx context.Context, query []float32, k int, minSimilarity float64) ([]models.Neighbor, error)

	CountPropositions(ctx context.Context) (int64, error)
	CountEdges(ctx context.Context) (map[string]int64, error)
	GetSemanticNeighbors(ctx context.Context, id string, minWeight float64) ([]models.Neighbor, error)
}

// ArchiveStore preserves the message -> semantic unit -> proposition
// lineage as emitted. All writes are upserts by primary key and must be
// safe to call from concurrent pipeline invocations.
type ArchiveStore interface {
	StoreMessage(ctx context.Context, msg *models.Message) error
	StoreSemanticUnit(ctx context.Context, su *models.SemanticUnit) error
	StoreProposition(ctx context.Context, p *models.Proposition) error

	GetMessage(ctx context.Context, id string) (*models.Message, error)
	GetSemanticUnit(ctx context.Context, unitID string) (*models.SemanticUnit, error)
	GetSemanticUnitsByMessage(ctx context.Context, messageID string) ([]*models.SemanticUnit, error)
	GetProposition(ctx context.Context, id string) (*models.Proposition, error)

	// GetFullLineage joins the three tables; exactly one row per
	// proposition.
	GetFullLineage(ctx context.Context, propositionID string) (*models.Lineage, error)

	Stats(ctx context.Context) (*models.ArchiveStats, error)
	Close() error
}
