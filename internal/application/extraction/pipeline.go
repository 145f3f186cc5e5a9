package extraction

import (
	"context"
	"log"
	"time"

	"github.com/resemantic/resemantic/internal/adapters/metrics"
	"github.com/resemantic/resemantic/internal/domain"
	"github.com/resemantic/resemantic/internal/domain/models"
	"github.com/resemantic/resemantic/internal/ports"
)

// Extraction variants.
const (
	VersionV1 = "v1"
	VersionV2 = "v2"
)

// Stage names, used in error strings, logs and metrics labels.
const (
	StageExtractUser          = "extract_user_su"
	StageExtractAssistant     = "extract_assistant_su"
	StageExtractReasoning     = "extract_reasoning_su"
	StagePropositionalizeUser = "propositionalize_user"
	StagePropositionalizeAsst = "propositionalize_assistant"
	StagePropositionalizeRsn  = "propositionalize_reasoning"
	StageEmbeddings           = "generate_embeddings"
	StageStorage              = "store_propositions"
	StageEdges                = "create_edges"
)

// Config carries the pipeline's tunables.
type Config struct {
	Version             string
	ContextMaxMessages  int
	SimilarityThreshold float64
	TopKNeighbors       int
}

// Pipeline drives one turn through the fixed stage sequence:
// Stage 1 extraction, Stage 2 propositionalization, embedding, dual-store
// commit, edge creation. Run never returns an error; failures are
// captured in the result and downstream stages short-circuit when their
// inputs are empty.
type Pipeline struct {
	extractor   *Extractor
	extractorV2 *ExtractorV2
	prop        *Propositionalizer
	embedder    ports.EmbeddingService
	graph       ports.GraphStore
	archive     ports.ArchiveStore
	cfg         Config
}

func NewPipeline(llmClient ports.LLMClient, embedder ports.EmbeddingService, graph ports.GraphStore, archive ports.ArchiveStore, cfg Config) *Pipeline {
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	return &Pipeline{
		extractor:   NewExtractor(llmClient, cfg.ContextMaxMessages),
		extractorV2: NewExtractorV2(llmClient, cfg.ContextMaxMessages),
		prop:        NewPropositionalizer(llmClient),
		embedder:    embedder,
		graph:       graph,
		archive:     archive,
		cfg:         cfg,
	}
}

func (p *Pipeline) v2() bool { return p.cfg.Version == VersionV2 }

// assistantStageNames returns the variant-appropriate names for the
// second extraction pair.
func (p *Pipeline) assistantStageNames() (extract, propositionalize string) {
	if p.v2() {
		return StageExtractReasoning, StagePropositionalizeRsn
	}
	return StageExtractAssistant, StagePropositionalizeAsst
}

// Run processes one turn. The result is always returned, never thrown;
// the first failing stage sets Error and later stages run only when
// their required inputs are non-empty.
func (p *Pipeline) Run(ctx context.Context, batch *models.TurnBatch) *models.TurnResult {
	result := &models.TurnResult{}
	defer metrics.TurnsProcessed.Inc()

	fail := func(stage string, err error) {
		metrics.PipelineErrors.WithLabelValues(stage).Inc()
		log.Printf("warning: pipeline stage %s failed: %v", stage, err)
		if result.Error == "" {
			result.Error = domain.NewExtractionError(err, stage, "").Error()
		}
	}
	timed := func(stage string, slot *float64, fn func() error) {
		start := time.Now()
		err := fn()
		*slot = time.Since(start).Seconds()
		metrics.StageDuration.WithLabelValues(stage).Observe(*slot)
		if err != nil {
			fail(stage, err)
		}
	}

	extractAsstStage, propAsstStage := p.assistantStageNames()

	// Stage 1a: user semantic unit.
	timed(StageExtractUser, &result.Timings.Stage1User, func() error {
		su, err := p.extractUser(ctx, batch)
		if err != nil {
			result.UserSemanticUnit = &models.SemanticUnit{}
			return err
		}
		result.UserSemanticUnit = su
		return nil
	})

	// Stage 1b: assistant (V1) or reasoning (V2) semantic unit.
	timed(extractAsstStage, &result.Timings.Stage1Assistant, func() error {
		su, err := p.extractAssistant(ctx, batch)
		if err != nil {
			result.AssistantSemanticUnit = &models.SemanticUnit{}
			return err
		}
		result.AssistantSemanticUnit = su
		return nil
	})

	// Stage 2a/2b: propositionalization. An empty unit short-circuits
	// its stage with zero-work timing.
	if !result.UserSemanticUnit.IsEmpty() {
		timed(StagePropositionalizeUser, &result.Timings.Stage2User, func() error {
			props, err := p.prop.Decompose(ctx, result.UserSemanticUnit)
			result.UserPropositions = props
			return err
		})
	}
	if !result.AssistantSemanticUnit.IsEmpty() {
		timed(propAsstStage, &result.Timings.Stage2Assistant, func() error {
			props, err := p.prop.Decompose(ctx, result.AssistantSemanticUnit)
			result.AssistantPropositions = props
			return err
		})
	}

	// Embedding: one batch for the whole turn, user props first. This
	// ordering is the contract the temporal chain relies on.
	props := result.Propositions()
	var embeddings []*ports.EmbeddingResult
	if len(props) > 0 {
		timed(StageEmbeddings, &result.Timings.Embedding, func() error {
			texts := make([]string, len(props))
			for i, prop := range props {
				texts[i] = prop.Content
			}
			var err error
			embeddings, err = p.embedder.EmbedBatch(ctx, texts)
			return err
		})
	}

	// Commit: archive lineage, then graph-then-archive per proposition.
	if len(embeddings) == len(props) && len(props) > 0 {
		timed(StageStorage, &result.Timings.Storage, func() error {
			return p.storePropositions(ctx, batch, result, props, embeddings)
		})
	}

	// Edges over whatever was committed, even after a partial failure.
	if len(result.StoredPropositionIDs) > 0 {
		timed(StageEdges, &result.Timings.EdgeCreation, func() error {
			return p.createEdges(ctx, result.StoredPropositionIDs, props)
		})
	}

	if result.Error == "" {
		log.Printf("info: turn processed: %d propositions stored", len(result.StoredPropositionIDs))
	}
	return result
}

func (p *Pipeline) extractUser(ctx context.Context, batch *models.TurnBatch) (*models.SemanticUnit, error) {
	if p.v2() {
		return p.extractorV2.ExtractUserSU(ctx, batch)
	}
	return p.extractor.ExtractUserSU(ctx, batch)
}

func (p *Pipeline) extractAssistant(ctx context.Context, batch *models.TurnBatch) (*models.SemanticUnit, error) {
	if p.v2() {
		return p.extractorV2.ExtractReasoningSU(ctx, batch)
	}
	return p.extractor.ExtractAssistantSU(ctx, batch)
}
