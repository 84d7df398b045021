package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"parley/internal/config"
	"parley/internal/domain"
	chatModels "parley/internal/domain/models/chat"
	chatRepo "parley/internal/domain/repositories/chat"
	chatSvc "parley/internal/domain/services/chat"
	domainllm "parley/internal/domain/services/llm"
)

// Service implements the GenerationService interface. It orchestrates one
// generation turn: lock, cached-history merge, user-message upsert, upstream
// streaming, and assistant-message persistence.
type Service struct {
	convRepo  chatRepo.ConversationRepository
	msgRepo   chatRepo.MessageRepository
	cache     chatRepo.ContextCache
	lock      chatRepo.GenerationLock
	providers domainllm.ProviderGetter
	cfg       *config.Config
	logger    *slog.Logger
}

// NewService creates a new generation service
func NewService(
	convRepo chatRepo.ConversationRepository,
	msgRepo chatRepo.MessageRepository,
	cache chatRepo.ContextCache,
	lock chatRepo.GenerationLock,
	providers domainllm.ProviderGetter,
	cfg *config.Config,
	logger *slog.Logger,
) chatSvc.GenerationService {
	return &Service{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		cache:     cache,
		lock:      lock,
		providers: providers,
		cfg:       cfg,
		logger:    logger,
	}
}

func validateIncomingMessage(msg *chatSvc.IncomingMessage) error {
	return validation.ValidateStruct(msg,
		validation.Field(&msg.ID, validation.Required),
		validation.Field(&msg.Content, validation.Required, validation.Length(1, config.MaxMessageLength)),
		validation.Field(&msg.Role, validation.Required, validation.In(chatModels.RoleUser)),
		validation.Field(&msg.ModelID, validation.Required),
		validation.Field(&msg.ConversationID, validation.Required),
	)
}

// Generate runs one generation turn. Errors before the first frame is written
// are returned to the handler for a synchronous error response; once the
// stream is open, failures surface as a failed status frame and the user
// message is marked sent=false for client-initiated retry.
func (s *Service) Generate(ctx context.Context, req *chatSvc.GenerateRequest, sink chatSvc.EventSink) error {
	if req.Message == nil {
		return fmt.Errorf("%w: message is required", domain.ErrValidation)
	}
	if err := validateIncomingMessage(req.Message); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	msg := req.Message

	// At most one in-flight generation per conversation. The TTL bounds a
	// crashed holder; Release runs on every other path.
	acquired, err := s.lock.Acquire(ctx, msg.ConversationID, config.GenerationLockTTL)
	if err != nil {
		return fmt.Errorf("acquire generation lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("conversation %s: %w", msg.ConversationID, domain.ErrLocked)
	}
	defer func() {
		// Release must go through even when the client aborted the request.
		releaseCtx := context.WithoutCancel(ctx)
		if err := s.lock.Release(releaseCtx, msg.ConversationID); err != nil {
			s.logger.Warn("failed to release generation lock",
				"conversation_id", msg.ConversationID,
				"error", err,
			)
		}
	}()

	// Prior context comes from the cache only. A miss or expired entry means
	// the newest message goes upstream alone; the store is deliberately not
	// re-queried inline (latency over a small consistency window).
	history, err := s.cache.GetMessages(ctx, msg.ConversationID)
	if err != nil {
		s.logger.Warn("context cache read failed, proceeding with empty history",
			"conversation_id", msg.ConversationID,
			"error", err,
		)
		history = nil
	}

	prompt := make([]domainllm.PromptMessage, 0, len(history)+1)
	for _, m := range history {
		prompt = append(prompt, domainllm.PromptMessage{Role: m.Role, Content: m.Content})
	}
	prompt = append(prompt, domainllm.PromptMessage{Role: chatModels.RoleUser, Content: msg.Content})

	start := time.Now()

	// First submission creates the conversation, named after the message.
	conv := &chatModels.Conversation{
		ID:        msg.ConversationID,
		Name:      deriveName(msg.Content),
		CreatedAt: start,
	}
	if err := s.convRepo.EnsureConversation(ctx, conv); err != nil {
		return err
	}

	// The user message is durable before the upstream call. A retry reuses
	// the same client-generated id; the upsert restores sent=true instead of
	// duplicating the row.
	userMsg := &chatModels.Message{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		ProfileID:      msg.ProfileID,
		Role:           chatModels.RoleUser,
		Content:        msg.Content,
		Model:          msg.ModelID,
		CreatedAt:      start,
	}
	if err := s.msgRepo.UpsertUserMessage(ctx, userMsg); err != nil {
		return err
	}

	provider, err := s.providers.GetProvider(msg.ModelID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// The stream is open from here on: failures are in-stream frames, not
	// HTTP errors.
	if err := sink.WriteEvent(chatModels.SSEEventStatus, chatModels.StatusEvent{
		Status:    chatModels.StatusThinking,
		MessageID: msg.ID,
	}); err != nil {
		return fmt.Errorf("write thinking frame: %w", err)
	}

	events, err := provider.StreamResponse(ctx, &domainllm.GenerateRequest{
		Model:       msg.ModelID,
		Messages:    prompt,
		System:      msg.Instruction,
		Temperature: msg.Temperature,
	})
	if err != nil {
		s.failTurn(ctx, sink, msg.ID, err)
		return nil
	}

	return s.consumeStream(ctx, sink, msg, events, start)
}

// consumeStream relays provider events to the sink and persists the assistant
// reply on successful completion.
func (s *Service) consumeStream(
	ctx context.Context,
	sink chatSvc.EventSink,
	msg *chatSvc.IncomingMessage,
	events <-chan domainllm.StreamEvent,
	start time.Time,
) error {
	var (
		text          []byte
		reasoning     []byte
		reasoningSeen bool
	)

	for ev := range events {
		switch ev.Type {
		case domainllm.StreamEventTextDelta:
			text = append(text, ev.Text...)
			if err := sink.WriteEvent(chatModels.SSEEventTextDelta, chatModels.DeltaEvent{
				MessageID: msg.ID,
				Text:      ev.Text,
			}); err != nil {
				s.failTurn(ctx, sink, msg.ID, err)
				return nil
			}

		case domainllm.StreamEventReasoningDelta:
			if !reasoningSeen {
				reasoningSeen = true
				// Status flips once, on the first reasoning chunk.
				if err := sink.WriteEvent(chatModels.SSEEventStatus, chatModels.StatusEvent{
					Status:    chatModels.StatusReasoning,
					MessageID: msg.ID,
				}); err != nil {
					s.failTurn(ctx, sink, msg.ID, err)
					return nil
				}
			}
			reasoning = append(reasoning, ev.Text...)
			if err := sink.WriteEvent(chatModels.SSEEventReasoningDelta, chatModels.DeltaEvent{
				MessageID: msg.ID,
				Text:      ev.Text,
			}); err != nil {
				s.failTurn(ctx, sink, msg.ID, err)
				return nil
			}

		case domainllm.StreamEventError:
			s.failTurn(ctx, sink, msg.ID, ev.Err)
			return nil

		case domainllm.StreamEventDone:
			return s.completeTurn(ctx, sink, msg, ev, text, reasoning, reasoningSeen, start)
		}
	}

	// Channel closed without a terminal event: treat as an upstream drop.
	s.failTurn(ctx, sink, msg.ID, fmt.Errorf("upstream stream ended without completion"))
	return nil
}

// completeTurn persists the assistant reply and emits the terminal done
// frame. Only a normal stop persists a row; the insert ignores duplicate
// completion events by id.
func (s *Service) completeTurn(
	ctx context.Context,
	sink chatSvc.EventSink,
	msg *chatSvc.IncomingMessage,
	ev domainllm.StreamEvent,
	text, reasoning []byte,
	reasoningSeen bool,
	start time.Time,
) error {
	if ev.FinishReason != "stop" {
		s.failTurn(ctx, sink, msg.ID, fmt.Errorf("generation finished with reason %q", ev.FinishReason))
		return nil
	}

	assistant := &chatModels.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: msg.ConversationID,
		ProfileID:      msg.ProfileID,
		Role:           chatModels.RoleAssistant,
		Content:        string(text),
		Model:          msg.ModelID,
		DurationMs:     time.Since(start).Milliseconds(),
		CreatedAt:      time.Now(),
	}
	if reasoningSeen {
		r := string(reasoning)
		assistant.Reasoning = &r
	}
	if ev.Usage != nil {
		assistant.PromptTokens = ev.Usage.PromptTokens
		assistant.CompletionTokens = ev.Usage.CompletionTokens
		assistant.TotalTokens = ev.Usage.TotalTokens
	}

	if err := s.msgRepo.InsertAssistantMessage(ctx, assistant); err != nil {
		s.failTurn(ctx, sink, msg.ID, err)
		return nil
	}

	s.logger.Info("generation completed",
		"conversation_id", msg.ConversationID,
		"message_id", msg.ID,
		"assistant_id", assistant.ID,
		"model", assistant.Model,
		"total_tokens", assistant.TotalTokens,
		"duration_ms", assistant.DurationMs,
	)

	if err := sink.WriteEvent(chatModels.SSEEventStatus, chatModels.DoneEvent{
		Status:           chatModels.StatusDone,
		MessageID:        assistant.ID,
		Model:            assistant.Model,
		PromptTokens:     assistant.PromptTokens,
		CompletionTokens: assistant.CompletionTokens,
		TotalTokens:      assistant.TotalTokens,
		DurationMs:       assistant.DurationMs,
	}); err != nil {
		// The reply is durable; a dead client just reloads it.
		s.logger.Warn("failed to write done frame", "message_id", msg.ID, "error", err)
	}

	return nil
}

// failTurn marks the user message for retry and emits the failed frame. The
// mark uses an uncancelled context so a client abort still leaves the
// recovery marker behind.
func (s *Service) failTurn(ctx context.Context, sink chatSvc.EventSink, messageID string, cause error) {
	s.logger.Error("generation failed",
		"message_id", messageID,
		"error", cause,
	)

	markCtx := context.WithoutCancel(ctx)
	if err := s.msgRepo.MarkFailed(markCtx, messageID); err != nil {
		s.logger.Error("failed to mark message as failed",
			"message_id", messageID,
			"error", err,
		)
	}

	errMsg := "generation failed"
	if cause != nil {
		errMsg = cause.Error()
	}
	if err := sink.WriteEvent(chatModels.SSEEventStatus, chatModels.FailedEvent{
		Status:    chatModels.StatusFailed,
		MessageID: messageID,
		Error:     errMsg,
	}); err != nil {
		s.logger.Warn("failed to write failed frame", "message_id", messageID, "error", err)
	}
}

// deriveName builds the conversation display name from the first user
// message. Truncation counts runes so a multibyte character is never split.
func deriveName(content string) string {
	if len(content) <= config.MaxConversationNameLength {
		return content
	}
	runes := []rune(content)
	if len(runes) <= config.MaxConversationNameLength {
		return content
	}
	return string(runes[:config.MaxConversationNameLength])
}
