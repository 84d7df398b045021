package chat

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one persisted turn of a conversation. IDs are client-generated
// and time-sortable; they are never reused. After insertion the only mutable
// field is Sent, which is flipped to false when a generation fails so the
// client can offer a retry scoped to this message.
type Message struct {
	ID               string    `json:"id"`
	ConversationID   string    `json:"conversationId"`
	ProfileID        string    `json:"profileId,omitempty"`
	Role             string    `json:"role"`
	Content          string    `json:"content"`
	Reasoning        *string   `json:"reasoning,omitempty"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	TotalTokens      int       `json:"totalTokens"`
	DurationMs       int64     `json:"durationMs"`
	Sent             bool      `json:"sent"`
	CreatedAt        time.Time `json:"createdAt"`
}
