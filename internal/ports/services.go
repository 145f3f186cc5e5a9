package ports

import "context"

// LLMClient issues one completion per call. Model identity, temperature
// and token budget are configuration, not arguments. Implementations
// must be safe for concurrent use.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EmbeddingResult is a single embedding with its provenance.
type EmbeddingResult struct {
	Embedding  []float32
	Model      string
	Dimensions int
}

// EmbeddingService produces fixed-dimension vectors suitable for cosine
// similarity. EmbedBatch preserves the input index order even when the
// provider returns results out of order.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) (*EmbeddingResult, error)
	EmbedBatch(ctx context.Context, texts []string) ([]*EmbeddingResult, error)
	GetDimensions() int
}

// IDGenerator mints identifiers for the entities the pipeline creates.
type IDGenerator interface {
	GenerateMessageID() string
	GenerateUnitID() string
	GeneratePropositionID() string
}
