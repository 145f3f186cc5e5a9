package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resemantic/resemantic/internal/adapters/archive"
	"github.com/resemantic/resemantic/internal/adapters/embedding"
	"github.com/resemantic/resemantic/internal/adapters/graph"
	"github.com/resemantic/resemantic/internal/application/extraction"
	"github.com/resemantic/resemantic/internal/config"
	"github.com/resemantic/resemantic/internal/llm"
)

// Version information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Shared global variables
var (
	cfg       *config.Config
	llmClient *llm.Client
)

// initGraphPool initializes the Postgres connection pool for the graph
// store
func initGraphPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Graph.PostgresURL == "" {
		return nil, fmt.Errorf("PostgreSQL connection required. Set RESEMANTIC_POSTGRES_URL")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Graph.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Force UTC timezone to prevent timezone-related issues with TIMESTAMP columns
	poolConfig.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return pool, nil
}

// initStores opens both stores
func initStores(ctx context.Context) (*graph.Store, *archive.Store, *pgxpool.Pool, error) {
	pool, err := initGraphPool(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	graphStore := graph.NewStore(pool, cfg.Embedding.Dimensions)

	archiveStore, err := archive.New(cfg.Archive.Path)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}

	return graphStore, archiveStore, pool, nil
}

// buildPipeline wires the full extraction pipeline from configuration
func buildPipeline(graphStore *graph.Store, archiveStore *archive.Store) *extraction.Pipeline {
	embedder := embedding.NewClient(
		cfg.Embedding.URL,
		cfg.Embedding.APIKey,
		cfg.Embedding.Model,
		cfg.Embedding.Dimensions,
		cfg.Embedding.BatchSize,
		time.Duration(cfg.Embedding.TimeoutSeconds)*time.Second,
	)

	return extraction.NewPipeline(llmClient, embedder, graphStore, archiveStore, extraction.Config{
		Version:             cfg.Extraction.Version,
		ContextMaxMessages:  cfg.Extraction.ContextMaxMessages,
		SimilarityThreshold: cfg.Extraction.SimilarityThreshold,
		TopKNeighbors:       cfg.Extraction.TopKNeighbors,
	})
}

// maskSecret masks a secret string for display
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
