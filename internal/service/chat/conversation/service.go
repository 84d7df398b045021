package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"parley/internal/config"
	"parley/internal/domain"
	chatModels "parley/internal/domain/models/chat"
	chatRepo "parley/internal/domain/repositories/chat"
	chatSvc "parley/internal/domain/services/chat"
)

// cursorLayout is the wire format of pagination cursors: the creation
// timestamp of the last conversation on the previous page.
const cursorLayout = time.RFC3339Nano

// Service implements the ConversationService interface
type Service struct {
	convRepo    chatRepo.ConversationRepository
	msgRepo     chatRepo.MessageRepository
	profileRepo chatRepo.ProfileRepository
	cache       chatRepo.ContextCache
	logger      *slog.Logger
}

// NewService creates a new conversation service
func NewService(
	convRepo chatRepo.ConversationRepository,
	msgRepo chatRepo.MessageRepository,
	profileRepo chatRepo.ProfileRepository,
	cache chatRepo.ContextCache,
	logger *slog.Logger,
) chatSvc.ConversationService {
	return &Service{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		profileRepo: profileRepo,
		cache:       cache,
		logger:      logger,
	}
}

// ListConversations returns one fixed-size page, newest first. The repository
// is probed for one row beyond the page size; a full probe means another page
// exists and the cursor is the creation time of the last returned row.
func (s *Service) ListConversations(ctx context.Context, cursor *string) (*chatModels.ConversationPage, error) {
	var before *time.Time
	if cursor != nil && *cursor != "" {
		t, err := time.Parse(cursorLayout, *cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid cursor", domain.ErrValidation)
		}
		before = &t
	}

	conversations, err := s.convRepo.ListConversations(ctx, before, config.ConversationPageSize+1)
	if err != nil {
		return nil, err
	}

	page := &chatModels.ConversationPage{}
	if len(conversations) > config.ConversationPageSize {
		conversations = conversations[:config.ConversationPageSize]
		next := conversations[len(conversations)-1].CreatedAt.Format(cursorLayout)
		page.Cursor = &next
	}
	page.Conversations = conversations

	return page, nil
}

// LoadConversation is the page-load path: read the authoritative message list
// from the store, rebuild the context cache entry, and resolve the profile
// the next turn should use.
func (s *Service) LoadConversation(ctx context.Context, conversationID string) (*chatSvc.ConversationView, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation id is required", domain.ErrValidation)
	}

	conv, err := s.convRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages, err := s.msgRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	// Rebuild the cache for the coming session window. A cache failure is
	// not fatal: the chat endpoint degrades to an empty-history merge.
	if err := s.cache.PutMessages(ctx, conversationID, messages, config.ContextCacheTTL); err != nil {
		s.logger.Warn("failed to rebuild context cache",
			"conversation_id", conversationID,
			"error", err,
		)
	}

	profile, err := s.resolveProfile(ctx, messages)
	if err != nil {
		return nil, err
	}

	return &chatSvc.ConversationView{
		Conversation: conv,
		Messages:     messages,
		Profile:      profile,
	}, nil
}

// resolveProfile picks the profile of the last message when it still exists,
// otherwise the default profile. Zero configured profiles means the
// application cannot operate yet and the caller should redirect to
// onboarding.
func (s *Service) resolveProfile(ctx context.Context, messages []chatModels.Message) (*chatModels.Profile, error) {
	profiles, err := s.profileRepo.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, domain.ErrOnboarding
	}

	if len(messages) > 0 {
		lastProfileID := messages[len(messages)-1].ProfileID
		for i := range profiles {
			if profiles[i].ID == lastProfileID {
				return &profiles[i], nil
			}
		}
	}

	for i := range profiles {
		if profiles[i].IsDefault {
			return &profiles[i], nil
		}
	}

	// Single-default invariant guarantees a default exists; fall back to the
	// first profile if the data predates the invariant.
	return &profiles[0], nil
}

// DeleteConversation removes the conversation, its messages (FK cascade) and
// its cache entry.
func (s *Service) DeleteConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("%w: conversation id is required", domain.ErrValidation)
	}

	if err := s.convRepo.DeleteConversation(ctx, conversationID); err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx, conversationID); err != nil {
		s.logger.Warn("failed to invalidate context cache",
			"conversation_id", conversationID,
			"error", err,
		)
	}

	s.logger.Info("conversation deleted", "conversation_id", conversationID)
	return nil
}
