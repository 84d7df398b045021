package chat

import (
	"context"
	"time"

	chatModels "parley/internal/domain/models/chat"
)

// ContextCache is the short-lived per-conversation cache of the full message
// list. It is never authoritative: the message store is. Entries are written
// on conversation page load and expire after one hour; a miss means the chat
// endpoint merges against an empty history.
type ContextCache interface {
	// GetMessages returns the cached message list for a conversation, or
	// (nil, nil) on a miss or expired entry.
	GetMessages(ctx context.Context, conversationID string) ([]chatModels.Message, error)

	// PutMessages caches the message list for a conversation with the given
	// TTL, replacing any previous entry.
	PutMessages(ctx context.Context, conversationID string, messages []chatModels.Message, ttl time.Duration) error

	// Invalidate drops the cache entry for a conversation.
	Invalidate(ctx context.Context, conversationID string) error
}

// GenerationLock serializes generations per conversation: at most one
// in-flight generation per conversation id. The token is TTL-bounded so a
// crashed holder cannot wedge the conversation forever.
type GenerationLock interface {
	// Acquire takes the lock for a conversation. Returns false when another
	// generation already holds it.
	Acquire(ctx context.Context, conversationID string, ttl time.Duration) (bool, error)

	// Release frees the lock for a conversation.
	Release(ctx context.Context, conversationID string) error
}
