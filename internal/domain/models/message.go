package models

import "time"

// Message roles
const (
	RoleUser               = "user"
	RoleAssistant          = "assistant"
	RoleAssistantReasoning = "assistant_reasoning"
)

// Message is a raw chat utterance. Messages are immutable and live in
// the archive only.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidRole reports whether role is one of the accepted message roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleAssistantReasoning:
		return true
	}
	return false
}

// ReasoningMessageID returns the synthetic archive id used for the
// reasoning that accompanied an assistant message.
func ReasoningMessageID(assistantMessageID string) string {
	return assistantMessageID + "_reasoning"
}
