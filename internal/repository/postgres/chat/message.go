package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"parley/internal/domain"
	chatModels "parley/internal/domain/models/chat"
	chatRepo "parley/internal/domain/repositories/chat"
	"parley/internal/repository/postgres"
)

// PostgresMessageRepository implements MessageRepository using PostgreSQL
type PostgresMessageRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewMessageRepository creates a new PostgresMessageRepository
func NewMessageRepository(config *postgres.RepositoryConfig) chatRepo.MessageRepository {
	return &PostgresMessageRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// UpsertUserMessage writes the user message before the upstream call. A retry
// resubmits the same client-generated id, so conflicts restore sent = TRUE on
// the existing row instead of inserting a duplicate.
func (r *PostgresMessageRepository) UpsertUserMessage(ctx context.Context, msg *chatModels.Message) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, conversation_id, profile_id, role, content, model, sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
		ON CONFLICT (id) DO UPDATE SET sent = TRUE
	`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.ProfileID,
		msg.Role,
		msg.Content,
		msg.Model,
		msg.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("conversation %s: %w", msg.ConversationID, domain.ErrNotFound)
		}
		return fmt.Errorf("upsert user message: %w", err)
	}

	msg.Sent = true
	return nil
}

// InsertAssistantMessage records the completed reply with its usage counters.
// A duplicate completion event for the same id cannot create a second row.
func (r *PostgresMessageRepository) InsertAssistantMessage(ctx context.Context, msg *chatModels.Message) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, conversation_id, profile_id, role, content, reasoning, model,
			prompt_tokens, completion_tokens, total_tokens, duration_ms, sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE, $12)
		ON CONFLICT (id) DO NOTHING
	`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.ProfileID,
		msg.Role,
		msg.Content,
		msg.Reasoning,
		msg.Model,
		msg.PromptTokens,
		msg.CompletionTokens,
		msg.TotalTokens,
		msg.DurationMs,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assistant message: %w", err)
	}

	msg.Sent = true
	return nil
}

// MarkFailed flips the sent flag to false so the client can surface a retry
// affordance for this message.
func (r *PostgresMessageRepository) MarkFailed(ctx context.Context, messageID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET sent = FALSE WHERE id = $1
	`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, messageID)
	if err != nil {
		return fmt.Errorf("mark message failed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}

	return nil
}

// ListByConversation returns all messages of a conversation in creation order.
// IDs are time-sortable, so (created_at, id) gives a stable total order.
func (r *PostgresMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]chatModels.Message, error) {
	query := fmt.Sprintf(`
		SELECT id, conversation_id, profile_id, role, content, reasoning, model,
			prompt_tokens, completion_tokens, total_tokens, duration_ms, sent, created_at
		FROM %s
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []chatModels.Message
	for rows.Next() {
		var msg chatModels.Message
		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.ProfileID,
			&msg.Role,
			&msg.Content,
			&msg.Reasoning,
			&msg.Model,
			&msg.PromptTokens,
			&msg.CompletionTokens,
			&msg.TotalTokens,
			&msg.DurationMs,
			&msg.Sent,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	if messages == nil {
		messages = []chatModels.Message{}
	}

	return messages, nil
}
