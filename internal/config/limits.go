package config

import "time"

const (
	// MaxMessageLength is the maximum length for a single user message.
	MaxMessageLength = 32768

	// MaxProfileNameLength is the maximum length for profile names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxProfileNameLength = 255

	// MaxConversationNameLength caps the display name derived from the
	// first user message.
	MaxConversationNameLength = 120

	// ConversationPageSize is the fixed page size for conversation listing.
	ConversationPageSize = 10

	// ContextCacheTTL is how long a cached per-conversation message list
	// stays valid. The cache is rebuilt on every page load, so a short
	// window is enough.
	ContextCacheTTL = time.Hour

	// GenerationLockTTL bounds how long a per-conversation generation lock
	// can be held, so a crashed holder cannot wedge the conversation.
	GenerationLockTTL = 5 * time.Minute
)
