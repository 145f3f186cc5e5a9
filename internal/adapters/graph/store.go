// Package graph persists propositions and their temporal/semantic edges
// in Postgres with a pgvector cosine index.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const DefaultQueryTimeout = 30 * time.Second

// contextKey is a type for transaction context keys
type contextKey string

const txKey contextKey = "pgx_tx"

// Store implements ports.GraphStore on Postgres + pgvector.
type Store struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewStore creates a graph store over an existing pool. dimensions is
// the fixed embedding width enforced by the vector column.
func NewStore(pool *pgxpool.Pool, dimensions int) *Store {
	return &Store{pool: pool, dimensions: dimensions}
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// GetTx retrieves the transaction from the context, if any
func GetTx(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txKey).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// conn returns either the context transaction or the pool.
func (s *Store) conn(ctx context.Context) interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
} {
	if tx := GetTx(ctx); tx != nil {
		return tx
	}
	return s.pool
}

// withTimeout wraps a context with a default query timeout if not already set
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultQueryTimeout)
}

// checkNoRows returns true if the error is pgx.ErrNoRows
func checkNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// marshalJSONField marshals a value to JSON, passing nil pointers through
func marshalJSONField[T any](value *T) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}

// unmarshalJSONPointer unmarshals JSON data into a new pointer of type T,
// returning nil for empty data
func unmarshalJSONPointer[T any](data []byte) (*T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func unmarshalJSONSlice[T any](data []byte) ([]T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result []T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}
