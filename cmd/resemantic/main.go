package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/resemantic/resemantic/internal/config"
	"github.com/resemantic/resemantic/internal/llm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "resemantic",
		Short: "resemantic - chat-to-semantic-memory extraction pipeline",
		Long: `resemantic turns chat exchanges into a growing semantic memory.

Each turn is decomposed in two LLM stages (semantic units, then atomic
propositions), embedded, and committed to a pgvector graph store plus a
SQLite lineage archive, with temporal and similarity edges linking the
propositions.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real config comes from file + env
			_ = godotenv.Load()

			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			llmClient = llm.NewClient(
				cfg.LLM.URL,
				cfg.LLM.APIKey,
				cfg.LLM.Model,
				cfg.LLM.MaxTokens,
				cfg.LLM.Temperature,
				time.Duration(cfg.LLM.TimeoutSeconds)*time.Second,
			)

			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		processCmd(),
		setupCmd(),
		statsCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("LLM:")
			fmt.Printf("  URL:         %s\n", cfg.LLM.URL)
			fmt.Printf("  Model:       %s\n", cfg.LLM.Model)
			fmt.Printf("  Max Tokens:  %d\n", cfg.LLM.MaxTokens)
			fmt.Printf("  Temperature: %.2f\n", cfg.LLM.Temperature)
			fmt.Printf("  Timeout:     %ds\n", cfg.LLM.TimeoutSeconds)
			fmt.Printf("  API Key:     %s\n", maskSecret(cfg.LLM.APIKey))
			fmt.Println()

			fmt.Println("Embedding:")
			fmt.Printf("  URL:        %s\n", cfg.Embedding.URL)
			fmt.Printf("  Model:      %s\n", cfg.Embedding.Model)
			fmt.Printf("  Dimensions: %d\n", cfg.Embedding.Dimensions)
			fmt.Printf("  Batch Size: %d\n", cfg.Embedding.BatchSize)
			fmt.Printf("  Timeout:    %ds\n", cfg.Embedding.TimeoutSeconds)
			fmt.Printf("  API Key:    %s\n", maskSecret(cfg.Embedding.APIKey))
			fmt.Println()

			fmt.Println("Stores:")
			fmt.Printf("  PostgreSQL:   %s\n", maskSecret(cfg.Graph.PostgresURL))
			fmt.Printf("  Archive Path: %s\n", cfg.Archive.Path)
			fmt.Println()

			fmt.Println("Extraction:")
			fmt.Printf("  Version:              %s\n", cfg.Extraction.Version)
			fmt.Printf("  Context Max Messages: %d\n", cfg.Extraction.ContextMaxMessages)
			fmt.Printf("  Similarity Threshold: %.2f\n", cfg.Extraction.SimilarityThreshold)
			fmt.Printf("  Top-K Neighbors:      %d\n", cfg.Extraction.TopKNeighbors)
			fmt.Println()

			fmt.Println("Workers:")
			fmt.Printf("  Count:      %d\n", cfg.Worker.Count)
			fmt.Printf("  Queue Size: %d\n", cfg.Worker.QueueSize)
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  RESEMANTIC_LLM_URL, RESEMANTIC_LLM_API_KEY, RESEMANTIC_LLM_MODEL")
			fmt.Println("  RESEMANTIC_LLM_TIMEOUT_SECONDS")
			fmt.Println("  RESEMANTIC_EMBEDDING_URL, RESEMANTIC_EMBEDDING_MODEL, RESEMANTIC_EMBEDDING_DIMENSIONS")
			fmt.Println("  RESEMANTIC_EMBEDDING_BATCH_SIZE, RESEMANTIC_EMBEDDING_TIMEOUT_SECONDS")
			fmt.Println("  RESEMANTIC_POSTGRES_URL, RESEMANTIC_ARCHIVE_PATH")
			fmt.Println("  RESEMANTIC_EXTRACTION_VERSION, RESEMANTIC_CONTEXT_MAX_MESSAGES")
			fmt.Println("  RESEMANTIC_SIMILARITY_THRESHOLD, RESEMANTIC_TOP_K_NEIGHBORS")

			return nil
		},
	}
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("resemantic %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}
