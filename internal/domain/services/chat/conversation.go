package chat

import (
	"context"

	chatModels "parley/internal/domain/models/chat"
)

// ConversationView is the page-load payload for one conversation: the full
// message list plus the profile the next turn should default to (the one used
// by the last message, falling back to the default profile).
type ConversationView struct {
	Conversation *chatModels.Conversation `json:"conversation"`
	Messages     []chatModels.Message     `json:"messages"`
	Profile      *chatModels.Profile      `json:"profile"`
}

// ConversationService manages conversation listing, loading and deletion.
type ConversationService interface {
	// ListConversations returns one page of conversations, newest first.
	// cursor is the opaque cursor from a previous page, or nil for the first.
	ListConversations(ctx context.Context, cursor *string) (*chatModels.ConversationPage, error)

	// LoadConversation loads a conversation's messages from the store,
	// rebuilds the context cache entry, and resolves the active profile.
	LoadConversation(ctx context.Context, conversationID string) (*ConversationView, error)

	// DeleteConversation removes a conversation and, by cascade, all of its
	// messages, and drops its cache entry.
	DeleteConversation(ctx context.Context, conversationID string) error
}
