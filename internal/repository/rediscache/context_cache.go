package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	chatModels "parley/internal/domain/models/chat"
	chatRepo "parley/internal/domain/repositories/chat"
)

// NewClient creates a redis client from a URL and verifies connectivity.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// ContextCache implements the per-conversation message cache on redis.
// One JSON blob per conversation id; entries expire on their TTL and are
// rebuilt on the next page load, never refreshed by the chat endpoint.
type ContextCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewContextCache creates a redis-backed ContextCache
func NewContextCache(client *redis.Client, logger *slog.Logger) chatRepo.ContextCache {
	return &ContextCache{
		client: client,
		logger: logger,
	}
}

func cacheKey(conversationID string) string {
	return "conversation:" + conversationID + ":messages"
}

// GetMessages returns the cached message list, or (nil, nil) on a miss.
// A corrupt entry is dropped and treated as a miss rather than failing the
// turn: the cache is not authoritative.
func (c *ContextCache) GetMessages(ctx context.Context, conversationID string) ([]chatModels.Message, error) {
	data, err := c.client.Get(ctx, cacheKey(conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached messages: %w", err)
	}

	var messages []chatModels.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		c.logger.Warn("dropping corrupt context cache entry",
			"conversation_id", conversationID,
			"error", err,
		)
		_ = c.client.Del(ctx, cacheKey(conversationID)).Err()
		return nil, nil
	}

	return messages, nil
}

// PutMessages caches the message list with the given TTL
func (c *ContextCache) PutMessages(ctx context.Context, conversationID string, messages []chatModels.Message, ttl time.Duration) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal messages for cache: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(conversationID), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache messages: %w", err)
	}

	return nil
}

// Invalidate drops the cache entry for a conversation
func (c *ContextCache) Invalidate(ctx context.Context, conversationID string) error {
	if err := c.client.Del(ctx, cacheKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("invalidate context cache: %w", err)
	}
	return nil
}
