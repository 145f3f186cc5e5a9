package extraction

import (
	"strings"

	"github.com/resemantic/resemantic/internal/domain/models"
)

// StartOfConversation is the context string used when no prior history
// exists.
const StartOfConversation = "Start of conversation"

// BuildContext renders the last maxMessages items of history as
// "User: ..." / "Assistant: ..." lines. Pure function of its inputs;
// earlier history items never influence the output.
func BuildContext(history []models.HistoryItem, maxMessages int) string {
	if len(history) == 0 || maxMessages <= 0 {
		return StartOfConversation
	}

	start := len(history) - maxMessages
	if start < 0 {
		start = 0
	}

	var lines []string
	for _, item := range history[start:] {
		switch item.Role {
		case models.RoleUser:
			lines = append(lines, "User: "+item.Content)
		case models.RoleAssistant:
			lines = append(lines, "Assistant: "+item.Content)
		}
	}

	if len(lines) == 0 {
		return StartOfConversation
	}
	return strings.Join(lines, "\n")
}
