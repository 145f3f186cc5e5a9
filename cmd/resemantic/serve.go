package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/resemantic/resemantic/internal/adapters/id"
	"github.com/resemantic/resemantic/internal/adapters/tracing"
	"github.com/resemantic/resemantic/internal/api/server"
	"github.com/resemantic/resemantic/internal/application/extraction"
)

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP ingestion server",
		Long: `Start the resemantic HTTP server.

POST /api/v1/turns accepts one chat exchange and enqueues it for
background extraction; the pipeline result is visible through logs,
/api/v1/stats and the proposition read endpoints.

Required configuration:
  - PostgreSQL with pgvector (RESEMANTIC_POSTGRES_URL)
  - LLM endpoint (RESEMANTIC_LLM_URL)
  - Embedding endpoint (RESEMANTIC_EMBEDDING_URL)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// runServer initializes and starts the HTTP server
func runServer(ctx context.Context) error {
	log.Println("Starting resemantic server...")
	log.Printf("  HTTP:      http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("  LLM:       %s", cfg.LLM.URL)
	log.Printf("  Embedding: %s", cfg.Embedding.URL)
	log.Printf("  Version:   %s extraction", cfg.Extraction.Version)

	shutdown, err := tracing.InitTracer("resemantic")
	if err != nil {
		log.Printf("Warning: Failed to initialize tracing: %v", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
	}

	graphStore, archiveStore, pool, err := initStores(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	defer archiveStore.Close()
	log.Println("Stores connected")

	if err := graphStore.SetupSchema(ctx); err != nil {
		return err
	}
	log.Println("Graph schema ensured")

	workerPool := extraction.NewWorkerPool(
		buildPipeline(graphStore, archiveStore),
		cfg.Worker.Count,
		cfg.Worker.QueueSize,
		nil,
	)
	workerPool.Start(ctx)
	log.Printf("Worker pool started: %d workers, queue %d", cfg.Worker.Count, cfg.Worker.QueueSize)

	srv := server.NewServer(cfg, workerPool, graphStore, archiveStore, id.New())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("Received %v, shutting down...", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Printf("Warning: HTTP shutdown: %v", err)
	}

	// drain queued turns before closing the stores
	workerPool.Stop()
	log.Println("Worker pool drained")

	return nil
}
