package graph

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/resemantic/resemantic/internal/domain"
	"github.com/resemantic/resemantic/internal/domain/models"
)

// CreateProposition inserts a new proposition node. A server-minted id
// is assigned when none is supplied. Lifecycle fields are initialized to
// their defaults; created_at and updated_at are stamped to now.
func (s *Store) CreateProposition(ctx context.Context, p *models.Proposition) (*models.Proposition, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if p == nil || p.Content == "" {
		return nil, fmt.Errorf("%w: proposition content is required", domain.ErrEmptyContent)
	}
	if s.dimensions > 0 && len(p.Embedding) > 0 && len(p.Embedding) != s.dimensions {
		return nil, fmt.Errorf("%w: expected %d dimensions but got %d",
			domain.ErrDimensionMismatch, s.dimensions, len(p.Embedding))
	}

	stored := *p
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.ActivationCount = models.DefaultActivationCount
	stored.CoherenceScore = models.DefaultCoherenceScore
	stored.IsWeak = false
	stored.WeaknessReason = nil
	stored.LastAccessed = nil

	concepts, err := marshalJSONField(&stored.Concepts)
	if err != nil {
		return nil, err
	}
	blockMetadata, err := marshalJSONField(stored.BlockMetadata)
	if err != nil {
		return nil, err
	}

	var embedding *pgvector.Vector
	if len(stored.Embedding) > 0 {
		v := pgvector.NewVector(stored.Embedding)
		embedding = &v
	}

	query := `
		INSERT INTO propositions (
			id, content, embedding, type, certainty, concepts, su_id,
			source_message_id, speaker, timestamp, block_metadata,
			activation_count, coherence_score, is_weak, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)`

	_, err = s.conn(ctx).Exec(ctx, query,
		stored.ID,
		stored.Content,
		embedding,
		stored.Type,
		stored.Certainty,
		concepts,
		stored.SUID,
		stored.SourceMessageID,
		stored.Speaker,
		stored.Timestamp,
		blockMetadata,
		stored.ActivationCount,
		stored.CoherenceScore,
		stored.IsWeak,
		stored.CreatedAt,
		stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create proposition: %v", domain.ErrStoreTransport, err)
	}

	return &stored, nil
}

// UpdateProposition patches lifecycle fields only and bumps updated_at.
// Content and embedding are immutable.
func (s *Store) UpdateProposition(ctx context.Context, id string, patch models.PropositionPatch) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if patch.IsZero() {
		return nil
	}

	set := "updated_at = $1"
	args := []any{time.Now().UTC()}
	next := 2

	addField := func(column string, value any) {
		set += fmt.Sprintf(", %s = $%d", column, next)
		args = append(args, value)
		next++
	}

	if patch.ActivationCount != nil {
		addField("activation_count", *patch.ActivationCount)
	}
	if patch.CoherenceScore != nil {
		addField("coherence_score", *patch.CoherenceScore)
	}
	if patch.IsWeak != nil {
		addField("is_weak", *patch.IsWeak)
	}
	if patch.WeaknessReason != nil {
		addField("weakness_reason", *patch.WeaknessReason)
	}
	if patch.LastAccessed != nil {
		addField("last_accessed", *patch.LastAccessed)
	}

	query := fmt.Sprintf("UPDATE propositions SET %s WHERE id = $%d", set, next)
	args = append(args, id)

	tag, err := s.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: update proposition: %v", domain.ErrStoreTransport, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const propositionColumns = `id, content, embedding, type, certainty, concepts, su_id,
	source_message_id, speaker, timestamp, block_metadata,
	activation_count, coherence_score, is_weak, weakness_reason,
	last_accessed, created_at, updated_at`

// GetProposition returns one proposition by id.
func (s *Store) GetProposition(ctx context.Context, id string) (*models.Proposition, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + propositionColumns + ` FROM propositions WHERE id = $1`

	var p models.Proposition
	var embedding *pgvector.Vector
	var concepts, blockMetadata []byte
	var certainty, speaker, weaknessReason sql.NullString
	var lastAccessed sql.NullTime

	err := s.conn(ctx).QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Content, &embedding, &p.Type, &certainty, &concepts,
		&p.SUID, &p.SourceMessageID, &speaker, &p.Timestamp, &blockMetadata,
		&p.ActivationCount, &p.CoherenceScore, &p.IsWeak, &weaknessReason,
		&lastAccessed, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get proposition: %v", domain.ErrStoreTransport, err)
	}

	if embedding != nil {
		p.Embedding = embedding.Slice()
	}
	if p.Concepts, err = unmarshalJSONSlice[string](concepts); err != nil {
		return nil, err
	}
	if p.BlockMetadata, err = unmarshalJSONPointer[models.BlockMetadata](blockMetadata); err != nil {
		return nil, err
	}
	p.Certainty = certainty.String
	p.Speaker = speaker.String
	if weaknessReason.Valid {
		p.WeaknessReason = &weaknessReason.String
	}
	if lastAccessed.Valid {
		p.LastAccessed = &lastAccessed.Time
	}

	return &p, nil
}

// VectorSearch returns the top-k propositions by cosine similarity with
// score >= minSimilarity, ordered by descending score.
func (s *Store) VectorSearch(ctx context.Context, query []float32, k int, minSimilarity float64) ([]models.Neighbor, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if s.dimensions > 0 && len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: expected %d dimensions but got %d",
			domain.ErrDimensionMismatch, s.dimensions, len(query))
	}

	sqlQuery := `
		SELECT id, content, 1 - (embedding <=> $1) AS similarity
		FROM propositions
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`

	rows, err := s.conn(ctx).Query(ctx, sqlQuery, pgvector.NewVector(query), minSimilarity, k)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", domain.ErrStoreTransport, err)
	}
	defer rows.Close()

	var neighbors []models.Neighbor
	for rows.Next() {
		var n models.Neighbor
		if err := rows.Scan(&n.ID, &n.Content, &n.Similarity); err != nil {
			return nil, fmt.Errorf("%w: vector search scan: %v", domain.ErrStoreTransport, err)
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}

// CountPropositions returns the number of proposition nodes.
func (s *Store) CountPropositions(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var count int64
	err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM propositions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count propositions: %v", domain.ErrStoreTransport, err)
	}
	return count, nil
}
