package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/resemantic/resemantic/internal/domain"
	"github.com/resemantic/resemantic/internal/domain/models"
)

// CreateTemporalEdge records the commit order from one proposition to
// the next. Idempotent: replaying the same pair is a no-op.
func (s *Store) CreateTemporalEdge(ctx context.Context, fromID, toID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO temporal_edges (from_id, to_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (from_id, to_id) DO NOTHING`

	_, err := s.conn(ctx).Exec(ctx, query, fromID, toID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: create temporal edge: %v", domain.ErrStoreTransport, err)
	}
	return nil
}

// CreateSemanticEdge records embedding similarity on the undirected
// pair, normalized so the smaller id comes first. Replay refreshes
// weight and last_strengthened while preserving coactivation_count.
// Self-edges are rejected.
func (s *Store) CreateSemanticEdge(ctx context.Context, aID, bID string, weight float64, createdBy string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if aID == bID {
		return fmt.Errorf("%w: %v", domain.ErrInvariantViolation, domain.ErrSelfEdge)
	}
	if aID > bID {
		aID, bID = bID, aID
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO semantic_edges (a_id, b_id, weight, created_by, coactivation_count, created_at, last_strengthened)
		VALUES ($1, $2, $3, $4, 0, $5, $5)
		ON CONFLICT (a_id, b_id) DO UPDATE
		SET weight = EXCLUDED.weight, last_strengthened = EXCLUDED.last_strengthened`

	_, err := s.conn(ctx).Exec(ctx, query, aID, bID, weight, createdBy, now)
	if err != nil {
		return fmt.Errorf("%w: create semantic edge: %v", domain.ErrStoreTransport, err)
	}
	return nil
}

// CountEdges returns edge counts grouped by type.
func (s *Store) CountEdges(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	counts := make(map[string]int64)

	var temporal int64
	if err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM temporal_edges`).Scan(&temporal); err != nil {
		return nil, fmt.Errorf("%w: count temporal edges: %v", domain.ErrStoreTransport, err)
	}
	counts["NEXT"] = temporal

	var semantic int64
	if err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM semantic_edges`).Scan(&semantic); err != nil {
		return nil, fmt.Errorf("%w: count semantic edges: %v", domain.ErrStoreTransport, err)
	}
	counts["COHERENT"] = semantic

	return counts, nil
}

// GetSemanticNeighbors returns the propositions linked to id by a
// COHERENT edge with weight >= minWeight, strongest first.
func (s *Store) GetSemanticNeighbors(ctx context.Context, id string, minWeight float64) ([]models.Neighbor, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT p.id, p.content, e.weight
		FROM semantic_edges e
		JOIN propositions p ON p.id = CASE WHEN e.a_id = $1 THEN e.b_id ELSE e.a_id END
		WHERE (e.a_id = $1 OR e.b_id = $1) AND e.weight >= $2
		ORDER BY e.weight DESC`

	rows, err := s.conn(ctx).Query(ctx, query, id, minWeight)
	if err != nil {
		return nil, fmt.Errorf("%w: get semantic neighbors: %v", domain.ErrStoreTransport, err)
	}
	defer rows.Close()

	var neighbors []models.Neighbor
	for rows.Next() {
		var n models.Neighbor
		if err := rows.Scan(&n.ID, &n.Content, &n.Similarity); err != nil {
			return nil, fmt.Errorf("%w: neighbor scan: %v", domain.ErrStoreTransport, err)
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}
