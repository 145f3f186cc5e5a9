// Package archive preserves the message -> semantic unit -> proposition
// lineage in a single SQLite file, using the pure-Go driver.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/resemantic/resemantic/internal/domain"
	"github.com/resemantic/resemantic/internal/domain/models"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Store implements ports.ArchiveStore backed by a local SQLite file.
// List-valued fields and the full record mappings are stored as JSON
// text. A single connection plus a write mutex serializes writers from
// concurrent pipeline invocations.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the archive at path and ensures the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %v", domain.ErrStoreTransport, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.setupSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) setupSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS semantic_units (
			unit_id TEXT PRIMARY KEY,
			message_id TEXT NOT NULL REFERENCES messages(id),
			content TEXT NOT NULL,
			type TEXT,
			narrative_role TEXT,
			concepts TEXT,
			entities TEXT,
			decisions TEXT,
			certainty TEXT,
			context_dependencies TEXT,
			impact TEXT,
			relevance TEXT,
			metadata TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS propositions_archive (
			proposition_id TEXT PRIMARY KEY,
			semantic_unit_id TEXT NOT NULL REFERENCES semantic_units(unit_id),
			content TEXT NOT NULL,
			type TEXT,
			certainty TEXT,
			concepts TEXT,
			metadata TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages (timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_semantic_units_message_id ON semantic_units (message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_propositions_archive_unit_id ON propositions_archive (semantic_unit_id)`,
	}

	for _, ddl := range statements {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("%w: archive schema: %v", domain.ErrStoreTransport, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// StoreMessage upserts a raw message row by id.
func (s *Store) StoreMessage(ctx context.Context, msg *models.Message) error {
	if msg == nil || msg.ID == "" {
		return fmt.Errorf("%w: message id is required", domain.ErrInvalidInput)
	}
	if !models.ValidRole(msg.Role) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, msg.Role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO messages (id, role, content, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			role = excluded.role,
			content = excluded.content,
			timestamp = excluded.timestamp`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.Role, msg.Content,
		msg.Timestamp.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: store message: %v", domain.ErrStoreTransport, err)
	}
	return nil
}

// StoreSemanticUnit upserts a semantic unit row by unit_id. The full
// unit mapping is preserved in the metadata column.
func (s *Store) StoreSemanticUnit(ctx context.Context, su *models.SemanticUnit) error {
	if su == nil || su.UnitID == "" {
		return fmt.Errorf("%w: unit id is required", domain.ErrInvalidInput)
	}

	concepts, err := marshalList(su.Concepts)
	if err != nil {
		return err
	}
	entities, err := marshalList(su.Entities)
	if err != nil {
		return err
	}
	decisions, err := marshalList(su.Decisions)
	if err != nil {
		return err
	}
	contextDeps, err := marshalList(su.ContextDependencies)
	if err != nil {
		return err
	}
	metadata, err := json.Marshal(su)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO semantic_units (
			unit_id, message_id, content, type, narrative_role, concepts,
			entities, decisions, certainty, context_dependencies, impact,
			relevance, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(unit_id) DO UPDATE SET
			message_id = excluded.message_id,
			content = excluded.content,
			type = excluded.type,
			narrative_role = excluded.narrative_role,
			concepts = excluded.concepts,
			entities = excluded.entities,
			decisions = excluded.decisions,
			certainty = excluded.certainty,
			context_dependencies = excluded.context_dependencies,
			impact = excluded.impact,
			relevance = excluded.relevance,
			metadata = excluded.metadata`

	_, err = s.db.ExecContext(ctx, query,
		su.UnitID, su.MessageID, su.Content, su.Type, su.NarrativeRole,
		concepts, entities, decisions, su.Certainty, contextDeps,
		su.Impact, su.Relevance, string(metadata),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: store semantic unit: %v", domain.ErrStoreTransport, err)
	}
	return nil
}

// StoreProposition upserts a proposition row keyed by the graph-store
// id. The full proposition mapping (minus the embedding) is preserved
// in the metadata column.
func (s *Store) StoreProposition(ctx context.Context, p *models.Proposition) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: proposition id is required", domain.ErrInvalidInput)
	}
	if p.SUID == "" {
		return fmt.Errorf("%w: proposition %s has no semantic unit", domain.ErrInvariantViolation, p.ID)
	}

	concepts, err := marshalList(p.Concepts)
	if err != nil {
		return err
	}

	// The embedding lives in the graph store; the archive keeps lineage
	// and provenance only.
	record := *p
	record.Embedding = nil
	metadata, err := json.Marshal(&record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO propositions_archive (
			proposition_id, semantic_unit_id, content, type, certainty,
			concepts, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(proposition_id) DO UPDATE SET
			semantic_unit_id = excluded.semantic_unit_id,
			content = excluded.content,
			type = excluded.type,
			certainty = excluded.certainty,
			concepts = excluded.concepts,
			metadata = excluded.metadata`

	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.SUID, p.Content, p.Type, p.Certainty,
		concepts, string(metadata),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: store proposition: %v", domain.ErrStoreTransport, err)
	}
	return nil
}

// GetMessage returns one message by id.
func (s *Store) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT id, role, content, timestamp, created_at FROM messages WHERE id = ?`
	return scanMessage(s.db.QueryRowContext(ctx, query, id))
}

func scanMessage(row *sql.Row) (*models.Message, error) {
	var msg models.Message
	var timestamp, createdAt string
	if err := row.Scan(&msg.ID, &msg.Role, &msg.Content, &timestamp, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get message: %v", domain.ErrStoreTransport, err)
	}
	msg.Timestamp, _ = time.Parse(time.RFC3339, timestamp)
	msg.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &msg, nil
}

// GetSemanticUnit returns one semantic unit by unit id, rehydrated from
// the metadata column.
func (s *Store) GetSemanticUnit(ctx context.Context, unitID string) (*models.SemanticUnit, error) {
	query := `SELECT metadata FROM semantic_units WHERE unit_id = ?`

	var metadata string
	if err := s.db.QueryRowContext(ctx, query, unitID).Scan(&metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get semantic unit: %v", domain.ErrStoreTransport, err)
	}

	var su models.SemanticUnit
	if err := json.Unmarshal([]byte(metadata), &su); err != nil {
		return nil, fmt.Errorf("%w: semantic unit metadata: %v", domain.ErrSchemaValidation, err)
	}
	return &su, nil
}

// GetSemanticUnitsByMessage returns the units extracted from one message.
func (s *Store) GetSemanticUnitsByMessage(ctx context.Context, messageID string) ([]*models.SemanticUnit, error) {
	query := `SELECT metadata FROM semantic_units WHERE message_id = ? ORDER BY unit_id`

	rows, err := s.db.QueryContext(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("%w: get semantic units: %v", domain.ErrStoreTransport, err)
	}
	defer rows.Close()

	var units []*models.SemanticUnit
	for rows.Next() {
		var metadata string
		if err := rows.Scan(&metadata); err != nil {
			return nil, fmt.Errorf("%w: semantic unit scan: %v", domain.ErrStoreTransport, err)
		}
		var su models.SemanticUnit
		if err := json.Unmarshal([]byte(metadata), &su); err != nil {
			return nil, fmt.Errorf("%w: semantic unit metadata: %v", domain.ErrSchemaValidation, err)
		}
		units = append(units, &su)
	}
	return units, rows.Err()
}

// GetProposition returns one archived proposition by id.
func (s *Store) GetProposition(ctx context.Context, id string) (*models.Proposition, error) {
	query := `SELECT metadata FROM propositions_archive WHERE proposition_id = ?`

	var metadata string
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get proposition: %v", domain.ErrStoreTransport, err)
	}

	var p models.Proposition
	if err := json.Unmarshal([]byte(metadata), &p); err != nil {
		return nil, fmt.Errorf("%w: proposition metadata: %v", domain.ErrSchemaValidation, err)
	}
	return &p, nil
}

// GetFullLineage joins the three tables and returns the message, the
// semantic unit and the proposition for one proposition id. Exactly one
// row per proposition.
func (s *Store) GetFullLineage(ctx context.Context, propositionID string) (*models.Lineage, error) {
	query := `
		SELECT m.id, m.role, m.content, m.timestamp, m.created_at,
		       su.metadata, p.metadata
		FROM propositions_archive p
		JOIN semantic_units su ON su.unit_id = p.semantic_unit_id
		JOIN messages m ON m.id = su.message_id
		WHERE p.proposition_id = ?`

	var msg models.Message
	var timestamp, createdAt, suMetadata, propMetadata string

	err := s.db.QueryRowContext(ctx, query, propositionID).Scan(
		&msg.ID, &msg.Role, &msg.Content, &timestamp, &createdAt,
		&suMetadata, &propMetadata,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get lineage: %v", domain.ErrStoreTransport, err)
	}
	msg.Timestamp, _ = time.Parse(time.RFC3339, timestamp)
	msg.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	var su models.SemanticUnit
	if err := json.Unmarshal([]byte(suMetadata), &su); err != nil {
		return nil, fmt.Errorf("%w: lineage semantic unit: %v", domain.ErrSchemaValidation, err)
	}
	var p models.Proposition
	if err := json.Unmarshal([]byte(propMetadata), &p); err != nil {
		return nil, fmt.Errorf("%w: lineage proposition: %v", domain.ErrSchemaValidation, err)
	}

	return &models.Lineage{Message: &msg, SemanticUnit: &su, Proposition: &p}, nil
}

// Stats returns row counts for the three tables.
func (s *Store) Stats(ctx context.Context) (*models.ArchiveStats, error) {
	var stats models.ArchiveStats

	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM messages`, &stats.Messages},
		{`SELECT COUNT(*) FROM semantic_units`, &stats.SemanticUnits},
		{`SELECT COUNT(*) FROM propositions_archive`, &stats.Propositions},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("%w: archive stats: %v", domain.ErrStoreTransport, err)
		}
	}
	return &stats, nil
}
