package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/resemantic/resemantic/internal/adapters/id"
	"github.com/resemantic/resemantic/internal/domain/models"
)

// conversationFile is the replay input: an ordered list of utterances.
type conversationFile struct {
	Messages []conversationMessage `json:"messages"`
}

type conversationMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Reasoning string     `json:"reasoning,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// processCmd replays a recorded conversation through the pipeline
func processCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "process <conversation.json>",
		Short: "Extract semantic memory from a recorded conversation",
		Long: `Replay a conversation file through the extraction pipeline.

The file holds {"messages": [{"role", "content", "reasoning"?}]}. Each
user/assistant pair becomes one pipeline invocation, run synchronously
in file order; prior messages feed the context window.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.Context(), args[0], jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit one JSON result per turn")
	return cmd
}

func runProcess(ctx context.Context, path string, jsonOutput bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read conversation: %w", err)
	}

	var conv conversationFile
	if err := json.Unmarshal(data, &conv); err != nil {
		// a bare message array is accepted too
		if arrErr := json.Unmarshal(data, &conv.Messages); arrErr != nil {
			return fmt.Errorf("failed to parse conversation: %w", err)
		}
	}
	if len(conv.Messages) == 0 {
		return fmt.Errorf("conversation contains no messages")
	}

	graphStore, archiveStore, pool, err := initStores(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	defer archiveStore.Close()

	if err := graphStore.SetupSchema(ctx); err != nil {
		return err
	}

	pipeline := buildPipeline(graphStore, archiveStore)
	idGen := id.New()

	var history []models.HistoryItem
	turns, stored, failed := 0, 0, 0

	for i := 0; i < len(conv.Messages)-1; i++ {
		userMsg := conv.Messages[i]
		assistantMsg := conv.Messages[i+1]
		if userMsg.Role != models.RoleUser || assistantMsg.Role != models.RoleAssistant {
			continue
		}

		timestamp := time.Now().UTC()
		if userMsg.Timestamp != nil {
			timestamp = *userMsg.Timestamp
		}

		batch := &models.TurnBatch{
			UserMessage:         userMsg.Content,
			AssistantMessage:    assistantMsg.Content,
			AssistantReasoning:  assistantMsg.Reasoning,
			ConversationHistory: append([]models.HistoryItem(nil), history...),
			Timestamp:           timestamp,
			UserMessageID:       idGen.GenerateMessageID(),
			AssistantMessageID:  idGen.GenerateMessageID(),
		}

		result := pipeline.Run(ctx, batch)
		turns++
		stored += len(result.StoredPropositionIDs)
		if result.Error != "" {
			failed++
		}

		if jsonOutput {
			out, err := json.Marshal(result)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		} else {
			status := "ok"
			if result.Error != "" {
				status = "error: " + result.Error
			}
			fmt.Printf("turn %d: %d propositions, %s\n", turns, len(result.StoredPropositionIDs), status)
		}

		history = append(history,
			models.HistoryItem{Role: models.RoleUser, Content: userMsg.Content},
			models.HistoryItem{Role: models.RoleAssistant, Content: assistantMsg.Content},
		)
		i++ // consume the assistant message
	}

	if !jsonOutput {
		fmt.Printf("\nProcessed %d turns: %d propositions stored, %d failed\n", turns, stored, failed)
	}
	return nil
}
