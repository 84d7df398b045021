package chat

import (
	"context"

	chatModels "parley/internal/domain/models/chat"
)

// MessageRepository manages the durable message table.
type MessageRepository interface {
	// UpsertUserMessage writes a user message. On a retry of the same id the
	// existing row's sent flag is restored to true instead of inserting a
	// duplicate.
	UpsertUserMessage(ctx context.Context, msg *chatModels.Message) error

	// InsertAssistantMessage writes the assistant reply. A duplicate
	// completion event for the same id is silently ignored.
	InsertAssistantMessage(ctx context.Context, msg *chatModels.Message) error

	// MarkFailed flips a message's sent flag to false. This is the only
	// mutation path after creation.
	MarkFailed(ctx context.Context, messageID string) error

	// ListByConversation returns all messages of a conversation in creation
	// order.
	ListByConversation(ctx context.Context, conversationID string) ([]chatModels.Message, error)
}
