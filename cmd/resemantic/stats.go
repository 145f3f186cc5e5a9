package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statsCmd reports row and edge counts from both stores
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show proposition, edge and archive counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			graphStore, archiveStore, pool, err := initStores(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			defer archiveStore.Close()

			propositions, err := graphStore.CountPropositions(ctx)
			if err != nil {
				return fmt.Errorf("failed to count propositions: %w", err)
			}
			edges, err := graphStore.CountEdges(ctx)
			if err != nil {
				return fmt.Errorf("failed to count edges: %w", err)
			}
			archiveStats, err := archiveStore.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to read archive stats: %w", err)
			}

			fmt.Println("Graph store:")
			fmt.Printf("  Propositions:   %d\n", propositions)
			fmt.Printf("  NEXT edges:     %d\n", edges["NEXT"])
			fmt.Printf("  COHERENT edges: %d\n", edges["COHERENT"])
			fmt.Println()
			fmt.Println("Archive:")
			fmt.Printf("  Messages:       %d\n", archiveStats.Messages)
			fmt.Printf("  Semantic units: %d\n", archiveStats.SemanticUnits)
			fmt.Printf("  Propositions:   %d\n", archiveStats.Propositions)

			return nil
		},
	}
}
