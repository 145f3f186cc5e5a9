package graph

import (
	"context"
	"fmt"

	"github.com/resemantic/resemantic/internal/domain"
)

// SetupSchema ensures the tables and indexes exist. Idempotent; safe to
// run on every startup.
func (s *Store) SetupSchema(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS propositions (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d),
			type TEXT NOT NULL,
			certainty TEXT,
			concepts JSONB,
			su_id TEXT NOT NULL,
			source_message_id TEXT NOT NULL,
			speaker TEXT,
			timestamp TIMESTAMPTZ NOT NULL,
			block_metadata JSONB,
			activation_count INTEGER NOT NULL DEFAULT 0,
			coherence_score DOUBLE PRECISION NOT NULL DEFAULT 0.5,
			is_weak BOOLEAN NOT NULL DEFAULT FALSE,
			weakness_reason TEXT,
			last_accessed TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, s.dimensions),

		`CREATE INDEX IF NOT EXISTS idx_propositions_timestamp ON propositions (timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_propositions_speaker ON propositions (speaker)`,
		`CREATE INDEX IF NOT EXISTS idx_propositions_coherence_score ON propositions (coherence_score)`,
		`CREATE INDEX IF NOT EXISTS idx_propositions_is_weak ON propositions (is_weak)`,

		`CREATE INDEX IF NOT EXISTS idx_propositions_embedding ON propositions
			USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,

		`CREATE TABLE IF NOT EXISTS temporal_edges (
			from_id TEXT NOT NULL REFERENCES propositions(id),
			to_id TEXT NOT NULL REFERENCES propositions(id),
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (from_id, to_id)
		)`,

		`CREATE TABLE IF NOT EXISTS semantic_edges (
			a_id TEXT NOT NULL REFERENCES propositions(id),
			b_id TEXT NOT NULL REFERENCES propositions(id),
			weight DOUBLE PRECISION NOT NULL,
			created_by TEXT NOT NULL,
			coactivation_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			last_strengthened TIMESTAMPTZ,
			PRIMARY KEY (a_id, b_id),
			CHECK (a_id < b_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.conn(ctx).Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: schema setup: %v", domain.ErrStoreTransport, err)
		}
	}

	return nil
}
