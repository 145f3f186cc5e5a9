package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// setupCmd initializes both stores
func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Initialize the graph schema and the archive database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			graphStore, archiveStore, pool, err := initStores(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			defer archiveStore.Close()

			if err := graphStore.SetupSchema(ctx); err != nil {
				return fmt.Errorf("failed to set up graph schema: %w", err)
			}
			fmt.Println("Graph schema created (pgvector extension, propositions, edges)")
			fmt.Printf("Archive ready at %s\n", cfg.Archive.Path)
			return nil
		},
	}
}
