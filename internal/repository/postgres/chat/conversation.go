package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"parley/internal/domain"
	chatModels "parley/internal/domain/models/chat"
	chatRepo "parley/internal/domain/repositories/chat"
	"parley/internal/repository/postgres"
)

// PostgresConversationRepository implements ConversationRepository using PostgreSQL
type PostgresConversationRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewConversationRepository creates a new PostgresConversationRepository
func NewConversationRepository(config *postgres.RepositoryConfig) chatRepo.ConversationRepository {
	return &PostgresConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// EnsureConversation inserts the conversation row if it does not exist.
// The first submission of a conversation creates it; retries are no-ops.
func (r *PostgresConversationRepository) EnsureConversation(ctx context.Context, conv *chatModels.Conversation) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, r.tables.Conversations)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, conv.ID, conv.Name, conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("ensure conversation: %w", err)
	}

	return nil
}

// GetConversation retrieves a conversation by ID
func (r *PostgresConversationRepository) GetConversation(ctx context.Context, id string) (*chatModels.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, name, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Conversations)

	var conv chatModels.Conversation
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&conv.ID, &conv.Name, &conv.CreatedAt)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &conv, nil
}

// ListConversations returns up to limit conversations created strictly before
// the cursor timestamp, newest first. A nil cursor starts from the newest.
func (r *PostgresConversationRepository) ListConversations(ctx context.Context, before *time.Time, limit int) ([]chatModels.Conversation, error) {
	executor := postgres.GetExecutor(ctx, r.pool)

	var (
		query string
		args  []interface{}
	)
	if before != nil {
		query = fmt.Sprintf(`
			SELECT id, name, created_at
			FROM %s
			WHERE created_at < $1
			ORDER BY created_at DESC
			LIMIT $2
		`, r.tables.Conversations)
		args = []interface{}{*before, limit}
	} else {
		query = fmt.Sprintf(`
			SELECT id, name, created_at
			FROM %s
			ORDER BY created_at DESC
			LIMIT $1
		`, r.tables.Conversations)
		args = []interface{}{limit}
	}

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []chatModels.Conversation
	for rows.Next() {
		var conv chatModels.Conversation
		if err := rows.Scan(&conv.ID, &conv.Name, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	// Return empty slice instead of nil
	if conversations == nil {
		conversations = []chatModels.Conversation{}
	}

	return conversations, nil
}

// DeleteConversation removes a conversation; the messages FK cascades.
func (r *PostgresConversationRepository) DeleteConversation(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Conversations)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
