package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"parley/internal/config"
	"parley/internal/repository/postgres"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed data")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}

	log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	// Seed a default profile so a fresh install skips onboarding. The app
	// refuses to chat with zero profiles configured.
	if err := ensureDefaultProfile(ctx, pool, tables, cfg.DefaultModel); err != nil {
		log.Fatalf("Failed to seed default profile: %v", err)
	}
	log.Println("✅ Default profile ready")

	// A sample conversation against the offline lorem provider, so the UI has
	// something to render before the first real exchange.
	if err := seedSampleConversation(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to seed sample conversation: %v", err)
	}
	log.Println("✅ Sample conversation ready")

	log.Println("🎉 Seeding complete!")
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	createConversations := `
		CREATE TABLE IF NOT EXISTS ` + tables.Conversations + ` (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createConversations); err != nil {
		return err
	}

	createProfiles := `
		CREATE TABLE IF NOT EXISTS ` + tables.Profiles + ` (
			id UUID PRIMARY KEY,
			model_id TEXT NOT NULL,
			name TEXT NOT NULL,
			system_message TEXT,
			temperature DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			metadata JSONB NOT NULL DEFAULT '{}',
			is_default BOOLEAN NOT NULL DEFAULT FALSE
		)
	`
	if _, err := pool.Exec(ctx, createProfiles); err != nil {
		return err
	}

	createMessages := `
		CREATE TABLE IF NOT EXISTS ` + tables.Messages + ` (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL REFERENCES ` + tables.Conversations + `(id) ON DELETE CASCADE,
			profile_id TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			reasoning TEXT,
			model TEXT NOT NULL,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			sent BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createMessages); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `conversations_created_at ON ` + tables.Conversations + `(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `messages_conversation ON ` + tables.Messages + `(conversation_id, created_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `profiles_default ON ` + tables.Profiles + `(is_default) WHERE is_default = TRUE`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.Messages,
		tables.Conversations,
		tables.Profiles,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}

// ensureDefaultProfile inserts the default profile unless one already exists.
func ensureDefaultProfile(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, modelID string) error {
	query := `
		INSERT INTO ` + tables.Profiles + ` (id, model_id, name, system_message, temperature, metadata, is_default)
		SELECT $1, $2, $3, NULL, 1.0, '{}', TRUE
		WHERE NOT EXISTS (SELECT 1 FROM ` + tables.Profiles + ` WHERE is_default = TRUE)
	`
	_, err := pool.Exec(ctx, query,
		uuid.Must(uuid.NewV7()).String(),
		modelID,
		"Default",
	)
	return err
}

// seedSampleConversation inserts a fixed-id conversation with one completed
// exchange. Fixed ids make reseeding idempotent.
func seedSampleConversation(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	conversationID := "11111111-1111-1111-1111-111111111111"
	userMsgID := "22222222-2222-2222-2222-222222222221"
	assistantMsgID := "22222222-2222-2222-2222-222222222222"
	now := time.Now()

	convQuery := `
		INSERT INTO ` + tables.Conversations + ` (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := pool.Exec(ctx, convQuery, conversationID, "Welcome", now); err != nil {
		return err
	}

	msgQuery := `
		INSERT INTO ` + tables.Messages + ` (id, conversation_id, role, content, model,
			prompt_tokens, completion_tokens, total_tokens, duration_ms, sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, $10)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := pool.Exec(ctx, msgQuery,
		userMsgID, conversationID, "user",
		"Hello! What can you do?",
		"lorem-fast", 0, 0, 0, 0, now,
	); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, msgQuery,
		assistantMsgID, conversationID, "assistant",
		"I stream replies from whichever model your active profile points at. Ask me anything, or set up a profile to pick a different model.",
		"lorem-fast", 8, 27, 35, 420, now.Add(time.Second),
	); err != nil {
		return err
	}

	return nil
}
