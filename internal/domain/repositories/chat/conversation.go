package chat

import (
	"context"
	"time"

	chatModels "parley/internal/domain/models/chat"
)

// ConversationRepository manages the durable conversation table.
type ConversationRepository interface {
	// EnsureConversation inserts the conversation if it does not exist yet.
	// Resubmissions of the first message make this a no-op.
	EnsureConversation(ctx context.Context, conv *chatModels.Conversation) error

	// GetConversation retrieves a conversation by id.
	GetConversation(ctx context.Context, id string) (*chatModels.Conversation, error)

	// ListConversations returns up to limit conversations created strictly
	// before the cursor (all when before is nil), newest first.
	ListConversations(ctx context.Context, before *time.Time, limit int) ([]chatModels.Conversation, error)

	// DeleteConversation removes the conversation; messages cascade.
	DeleteConversation(ctx context.Context, id string) error
}
