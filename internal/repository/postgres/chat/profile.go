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

// PostgresProfileRepository implements ProfileRepository using PostgreSQL
type PostgresProfileRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewProfileRepository creates a new PostgresProfileRepository
func NewProfileRepository(config *postgres.RepositoryConfig) chatRepo.ProfileRepository {
	return &PostgresProfileRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// UpsertProfile creates or replaces a profile by id. Callers that set
// IsDefault must run this inside a transaction together with clearing the
// flag elsewhere; the service layer owns that ordering.
func (r *PostgresProfileRepository) UpsertProfile(ctx context.Context, profile *chatModels.Profile) error {
	executor := postgres.GetExecutor(ctx, r.pool)

	if profile.IsDefault {
		clearQuery := fmt.Sprintf(`
			UPDATE %s SET is_default = FALSE WHERE id <> $1 AND is_default = TRUE
		`, r.tables.Profiles)
		if _, err := executor.Exec(ctx, clearQuery, profile.ID); err != nil {
			return fmt.Errorf("clear default flag: %w", err)
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, model_id, name, system_message, temperature, metadata, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			model_id = EXCLUDED.model_id,
			name = EXCLUDED.name,
			system_message = EXCLUDED.system_message,
			temperature = EXCLUDED.temperature,
			metadata = EXCLUDED.metadata,
			is_default = EXCLUDED.is_default
	`, r.tables.Profiles)

	_, err := executor.Exec(ctx, query,
		profile.ID,
		profile.ModelID,
		profile.Name,
		profile.SystemMessage,
		profile.Temperature,
		profile.Metadata,
		profile.IsDefault,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}

// GetProfile retrieves a profile by ID
func (r *PostgresProfileRepository) GetProfile(ctx context.Context, id string) (*chatModels.Profile, error) {
	query := fmt.Sprintf(`
		SELECT id, model_id, name, system_message, temperature, metadata, is_default
		FROM %s
		WHERE id = $1
	`, r.tables.Profiles)

	var profile chatModels.Profile
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.ModelID,
		&profile.Name,
		&profile.SystemMessage,
		&profile.Temperature,
		&profile.Metadata,
		&profile.IsDefault,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &profile, nil
}

// ListProfiles returns all profiles, default first for stable UI ordering.
func (r *PostgresProfileRepository) ListProfiles(ctx context.Context) ([]chatModels.Profile, error) {
	query := fmt.Sprintf(`
		SELECT id, model_id, name, system_message, temperature, metadata, is_default
		FROM %s
		ORDER BY is_default DESC, name ASC
	`, r.tables.Profiles)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []chatModels.Profile
	for rows.Next() {
		var profile chatModels.Profile
		err := rows.Scan(
			&profile.ID,
			&profile.ModelID,
			&profile.Name,
			&profile.SystemMessage,
			&profile.Temperature,
			&profile.Metadata,
			&profile.IsDefault,
		)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	if profiles == nil {
		profiles = []chatModels.Profile{}
	}

	return profiles, nil
}

// CountProfiles returns the number of profiles
func (r *PostgresProfileRepository) CountProfiles(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Profiles)

	var count int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}

	return count, nil
}

// DeleteProfile removes a profile and returns the deleted row
func (r *PostgresProfileRepository) DeleteProfile(ctx context.Context, id string) (*chatModels.Profile, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
		RETURNING id, model_id, name, system_message, temperature, metadata, is_default
	`, r.tables.Profiles)

	var profile chatModels.Profile
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.ModelID,
		&profile.Name,
		&profile.SystemMessage,
		&profile.Temperature,
		&profile.Metadata,
		&profile.IsDefault,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("delete profile: %w", err)
	}

	return &profile, nil
}

// PromoteAnyDefault marks an arbitrary remaining profile as default when no
// profile currently carries the flag.
func (r *PostgresProfileRepository) PromoteAnyDefault(ctx context.Context) error {
	query := fmt.Sprintf(`
		UPDATE %s SET is_default = TRUE
		WHERE id = (
			SELECT id FROM %s
			WHERE NOT EXISTS (SELECT 1 FROM %s WHERE is_default = TRUE)
			ORDER BY id
			LIMIT 1
		)
	`, r.tables.Profiles, r.tables.Profiles, r.tables.Profiles)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query); err != nil {
		return fmt.Errorf("promote default profile: %w", err)
	}

	return nil
}
