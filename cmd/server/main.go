package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"parley/internal/catalog"
	"parley/internal/config"
	"parley/internal/handler"
	"parley/internal/handler/sse"
	"parley/internal/middleware"
	"parley/internal/repository/postgres"
	postgresChat "parley/internal/repository/postgres/chat"
	"parley/internal/repository/rediscache"
	conversationSvc "parley/internal/service/chat/conversation"
	generationSvc "parley/internal/service/chat/generation"
	profileSvc "parley/internal/service/chat/profile"
	serviceLLM "parley/internal/service/llm"
	"parley/internal/service/llm/providers/lorem"
	"parley/internal/service/llm/providers/openrouter"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Redis carries the conversation context cache and the generation locks
	redisClient, err := rediscache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	logger.Info("redis connected")

	// Create repositories
	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	convRepo := postgresChat.NewConversationRepository(repoConfig)
	msgRepo := postgresChat.NewMessageRepository(repoConfig)
	profileRepo := postgresChat.NewProfileRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	contextCache := rediscache.NewContextCache(redisClient, logger)
	generationLock := rediscache.NewGenerationLock(redisClient, logger)

	// Setup LLM providers. Registration order matters: lorem claims its
	// lorem-* models first, openrouter accepts everything else.
	providerRegistry := serviceLLM.NewProviderRegistry()
	providerRegistry.Register(lorem.NewProvider())
	if cfg.OpenRouterAPIKey != "" {
		orProvider, err := openrouter.NewProvider(cfg.OpenRouterAPIKey, cfg.OpenRouterURL)
		if err != nil {
			log.Fatalf("Failed to setup openrouter provider: %v", err)
		}
		providerRegistry.Register(orProvider)
	} else {
		logger.Warn("OPENROUTER_API_KEY not set, only lorem-* models are available")
	}

	// Model catalog for the profile editor
	modelRegistry, err := catalog.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize model catalog: %v", err)
	}

	// Create services
	generationService := generationSvc.NewService(
		convRepo, msgRepo, contextCache, generationLock, providerRegistry, cfg, logger,
	)
	conversationService := conversationSvc.NewService(
		convRepo, msgRepo, profileRepo, contextCache, logger,
	)
	profileService := profileSvc.NewService(profileRepo, txManager, logger)

	logger.Info("services initialized")

	// Create handlers
	chatHandler := handler.NewChatHandler(generationService, sse.DefaultConfig(), logger)
	conversationHandler := handler.NewConversationHandler(conversationService, logger)
	profileHandler := handler.NewProfileHandler(profileService, logger)
	modelsHandler := handler.NewModelsHandler(modelRegistry)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Chat streaming route
	mux.HandleFunc("POST /api/chat", chatHandler.Generate)

	// Conversation routes
	mux.HandleFunc("GET /api/conversations", conversationHandler.List)
	mux.HandleFunc("GET /api/conversations/{id}/messages", conversationHandler.Messages)
	mux.HandleFunc("POST /api/conversations/delete", conversationHandler.Delete)

	// Profile routes
	mux.HandleFunc("GET /api/profiles", profileHandler.List)
	mux.HandleFunc("POST /api/profiles", profileHandler.Upsert)
	mux.HandleFunc("POST /api/profiles/delete", profileHandler.Delete)

	// Model catalog route
	mux.HandleFunc("GET /api/models", modelsHandler.List)

	// Build middleware chain: CORS → Recovery → Routes
	var root http.Handler = mux
	root = middleware.Recovery(logger)(root)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Last-Event-ID"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
