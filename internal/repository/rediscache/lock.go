package rediscache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	chatRepo "parley/internal/domain/repositories/chat"
)

// GenerationLock is a per-conversation advisory lock held in redis via
// SET NX with a TTL. It enforces at most one in-flight generation per
// conversation across tabs and clients; the TTL bounds how long a crashed
// holder can block the conversation.
type GenerationLock struct {
	client *redis.Client
	logger *slog.Logger
}

// NewGenerationLock creates a redis-backed GenerationLock
func NewGenerationLock(client *redis.Client, logger *slog.Logger) chatRepo.GenerationLock {
	return &GenerationLock{
		client: client,
		logger: logger,
	}
}

func lockKey(conversationID string) string {
	return "conversation:" + conversationID + ":lock"
}

// Acquire takes the lock; returns false when another generation holds it.
func (l *GenerationLock) Acquire(ctx context.Context, conversationID string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(conversationID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire generation lock: %w", err)
	}
	return ok, nil
}

// Release frees the lock.
func (l *GenerationLock) Release(ctx context.Context, conversationID string) error {
	if err := l.client.Del(ctx, lockKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("release generation lock: %w", err)
	}
	return nil
}
