package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"parley/internal/config"
	"parley/internal/domain"
	chatModels "parley/internal/domain/models/chat"
	chatSvc "parley/internal/domain/services/chat"
)

type fakeConvRepo struct {
	conversations []chatModels.Conversation
	deleted       []string
}

func (r *fakeConvRepo) EnsureConversation(ctx context.Context, conv *chatModels.Conversation) error {
	return nil
}

func (r *fakeConvRepo) GetConversation(ctx context.Context, id string) (*chatModels.Conversation, error) {
	for i := range r.conversations {
		if r.conversations[i].ID == id {
			return &r.conversations[i], nil
		}
	}
	return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
}

func (r *fakeConvRepo) ListConversations(ctx context.Context, before *time.Time, limit int) ([]chatModels.Conversation, error) {
	// Conversations are stored newest first, matching the real query order.
	var out []chatModels.Conversation
	for _, c := range r.conversations {
		if before != nil && !c.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeConvRepo) DeleteConversation(ctx context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeMsgRepo struct {
	messages map[string][]chatModels.Message
}

func (r *fakeMsgRepo) UpsertUserMessage(ctx context.Context, msg *chatModels.Message) error {
	return nil
}

func (r *fakeMsgRepo) InsertAssistantMessage(ctx context.Context, msg *chatModels.Message) error {
	return nil
}

func (r *fakeMsgRepo) MarkFailed(ctx context.Context, messageID string) error { return nil }

func (r *fakeMsgRepo) ListByConversation(ctx context.Context, conversationID string) ([]chatModels.Message, error) {
	msgs := r.messages[conversationID]
	if msgs == nil {
		msgs = []chatModels.Message{}
	}
	return msgs, nil
}

type fakeProfileRepo struct {
	profiles []chatModels.Profile
}

func (r *fakeProfileRepo) UpsertProfile(ctx context.Context, profile *chatModels.Profile) error {
	return nil
}

func (r *fakeProfileRepo) GetProfile(ctx context.Context, id string) (*chatModels.Profile, error) {
	return nil, domain.ErrNotFound
}

func (r *fakeProfileRepo) ListProfiles(ctx context.Context) ([]chatModels.Profile, error) {
	return r.profiles, nil
}

func (r *fakeProfileRepo) CountProfiles(ctx context.Context) (int, error) {
	return len(r.profiles), nil
}

func (r *fakeProfileRepo) DeleteProfile(ctx context.Context, id string) (*chatModels.Profile, error) {
	return nil, domain.ErrNotFound
}

func (r *fakeProfileRepo) PromoteAnyDefault(ctx context.Context) error { return nil }

type fakeCache struct {
	entries     map[string][]chatModels.Message
	invalidated []string
	putErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]chatModels.Message{}}
}

func (c *fakeCache) GetMessages(ctx context.Context, conversationID string) ([]chatModels.Message, error) {
	return c.entries[conversationID], nil
}

func (c *fakeCache) PutMessages(ctx context.Context, conversationID string, messages []chatModels.Message, ttl time.Duration) error {
	if c.putErr != nil {
		return c.putErr
	}
	c.entries[conversationID] = messages
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, conversationID string) error {
	c.invalidated = append(c.invalidated, conversationID)
	delete(c.entries, conversationID)
	return nil
}

func seedConversations(n int) []chatModels.Conversation {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]chatModels.Conversation, n)
	for i := 0; i < n; i++ {
		// Newest first, spaced one minute apart.
		out[i] = chatModels.Conversation{
			ID:        fmt.Sprintf("conv-%02d", i),
			Name:      fmt.Sprintf("Conversation %d", i),
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

func newTestService(convRepo *fakeConvRepo, msgRepo *fakeMsgRepo, profileRepo *fakeProfileRepo, cache *fakeCache) chatSvc.ConversationService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(convRepo, msgRepo, profileRepo, cache, logger)
}

func TestListConversationsFirstPage(t *testing.T) {
	convRepo := &fakeConvRepo{conversations: seedConversations(config.ConversationPageSize + 5)}
	svc := newTestService(convRepo, &fakeMsgRepo{}, &fakeProfileRepo{}, newFakeCache())

	page, err := svc.ListConversations(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}

	if got := len(page.Conversations); got != config.ConversationPageSize {
		t.Fatalf("page size = %d, want %d", got, config.ConversationPageSize)
	}
	if page.Cursor == nil {
		t.Fatal("cursor = nil, want one while more pages remain")
	}

	last := page.Conversations[len(page.Conversations)-1]
	if *page.Cursor != last.CreatedAt.Format(time.RFC3339Nano) {
		t.Errorf("cursor = %q, want last row's timestamp", *page.Cursor)
	}
}

func TestListConversationsSecondPage(t *testing.T) {
	convRepo := &fakeConvRepo{conversations: seedConversations(config.ConversationPageSize + 5)}
	svc := newTestService(convRepo, &fakeMsgRepo{}, &fakeProfileRepo{}, newFakeCache())

	first, err := svc.ListConversations(context.Background(), nil)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}

	second, err := svc.ListConversations(context.Background(), first.Cursor)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}

	if got := len(second.Conversations); got != 5 {
		t.Fatalf("second page size = %d, want 5", got)
	}
	if second.Cursor != nil {
		t.Errorf("cursor on final page = %q, want nil", *second.Cursor)
	}

	// No overlap between pages.
	seen := map[string]bool{}
	for _, c := range first.Conversations {
		seen[c.ID] = true
	}
	for _, c := range second.Conversations {
		if seen[c.ID] {
			t.Errorf("conversation %s appears on both pages", c.ID)
		}
	}
}

func TestListConversationsExactPageBoundary(t *testing.T) {
	convRepo := &fakeConvRepo{conversations: seedConversations(config.ConversationPageSize)}
	svc := newTestService(convRepo, &fakeMsgRepo{}, &fakeProfileRepo{}, newFakeCache())

	page, err := svc.ListConversations(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}

	if got := len(page.Conversations); got != config.ConversationPageSize {
		t.Errorf("page size = %d, want %d", got, config.ConversationPageSize)
	}
	if page.Cursor != nil {
		t.Errorf("cursor = %q, want nil when no further page exists", *page.Cursor)
	}
}

func TestListConversationsInvalidCursor(t *testing.T) {
	svc := newTestService(&fakeConvRepo{}, &fakeMsgRepo{}, &fakeProfileRepo{}, newFakeCache())

	bad := "not-a-timestamp"
	_, err := svc.ListConversations(context.Background(), &bad)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestLoadConversationRebuildsCache(t *testing.T) {
	conv := chatModels.Conversation{ID: "conv-1", Name: "Test", CreatedAt: time.Now()}
	messages := []chatModels.Message{
		{ID: "m1", ConversationID: "conv-1", Role: chatModels.RoleUser, Content: "hi", ProfileID: "p2"},
	}
	convRepo := &fakeConvRepo{conversations: []chatModels.Conversation{conv}}
	msgRepo := &fakeMsgRepo{messages: map[string][]chatModels.Message{"conv-1": messages}}
	profileRepo := &fakeProfileRepo{profiles: []chatModels.Profile{
		{ID: "p1", Name: "Default", IsDefault: true},
		{ID: "p2", Name: "Other"},
	}}
	cache := newFakeCache()
	svc := newTestService(convRepo, msgRepo, profileRepo, cache)

	view, err := svc.LoadConversation(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("LoadConversation: %v", err)
	}

	if view.Conversation.ID != "conv-1" {
		t.Errorf("conversation id = %s", view.Conversation.ID)
	}
	if len(view.Messages) != 1 {
		t.Errorf("got %d messages, want 1", len(view.Messages))
	}
	if got := len(cache.entries["conv-1"]); got != 1 {
		t.Errorf("cache entry has %d messages, want rebuilt with 1", got)
	}
	// The last message's profile wins over the default.
	if view.Profile == nil || view.Profile.ID != "p2" {
		t.Errorf("profile = %+v, want p2 (last message's profile)", view.Profile)
	}
}

func TestLoadConversationFallsBackToDefaultProfile(t *testing.T) {
	conv := chatModels.Conversation{ID: "conv-1", Name: "Test", CreatedAt: time.Now()}
	messages := []chatModels.Message{
		{ID: "m1", ConversationID: "conv-1", Role: chatModels.RoleUser, ProfileID: "deleted-profile"},
	}
	convRepo := &fakeConvRepo{conversations: []chatModels.Conversation{conv}}
	msgRepo := &fakeMsgRepo{messages: map[string][]chatModels.Message{"conv-1": messages}}
	profileRepo := &fakeProfileRepo{profiles: []chatModels.Profile{
		{ID: "p1", Name: "Default", IsDefault: true},
	}}
	svc := newTestService(convRepo, msgRepo, profileRepo, newFakeCache())

	view, err := svc.LoadConversation(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("LoadConversation: %v", err)
	}

	if view.Profile == nil || view.Profile.ID != "p1" {
		t.Errorf("profile = %+v, want default p1", view.Profile)
	}
}

func TestLoadConversationNoProfilesMeansOnboarding(t *testing.T) {
	conv := chatModels.Conversation{ID: "conv-1", Name: "Test", CreatedAt: time.Now()}
	convRepo := &fakeConvRepo{conversations: []chatModels.Conversation{conv}}
	msgRepo := &fakeMsgRepo{messages: map[string][]chatModels.Message{}}
	svc := newTestService(convRepo, msgRepo, &fakeProfileRepo{}, newFakeCache())

	_, err := svc.LoadConversation(context.Background(), "conv-1")
	if !errors.Is(err, domain.ErrOnboarding) {
		t.Errorf("err = %v, want ErrOnboarding", err)
	}
}

func TestLoadConversationCacheWriteFailureIsNotFatal(t *testing.T) {
	conv := chatModels.Conversation{ID: "conv-1", Name: "Test", CreatedAt: time.Now()}
	convRepo := &fakeConvRepo{conversations: []chatModels.Conversation{conv}}
	msgRepo := &fakeMsgRepo{messages: map[string][]chatModels.Message{}}
	profileRepo := &fakeProfileRepo{profiles: []chatModels.Profile{{ID: "p1", IsDefault: true}}}
	cache := newFakeCache()
	cache.putErr = errors.New("redis down")
	svc := newTestService(convRepo, msgRepo, profileRepo, cache)

	if _, err := svc.LoadConversation(context.Background(), "conv-1"); err != nil {
		t.Errorf("LoadConversation should tolerate a cache write failure: %v", err)
	}
}

func TestLoadConversationNotFound(t *testing.T) {
	svc := newTestService(&fakeConvRepo{}, &fakeMsgRepo{}, &fakeProfileRepo{}, newFakeCache())

	_, err := svc.LoadConversation(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteConversationInvalidatesCache(t *testing.T) {
	convRepo := &fakeConvRepo{}
	cache := newFakeCache()
	cache.entries["conv-1"] = []chatModels.Message{{ID: "m1"}}
	svc := newTestService(convRepo, &fakeMsgRepo{}, &fakeProfileRepo{}, cache)

	if err := svc.DeleteConversation(context.Background(), "conv-1"); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}

	if len(convRepo.deleted) != 1 || convRepo.deleted[0] != "conv-1" {
		t.Errorf("deleted = %v, want [conv-1]", convRepo.deleted)
	}
	if len(cache.invalidated) != 1 {
		t.Errorf("cache invalidations = %v, want one", cache.invalidated)
	}
}

func TestDeleteConversationMissingID(t *testing.T) {
	svc := newTestService(&fakeConvRepo{}, &fakeMsgRepo{}, &fakeProfileRepo{}, newFakeCache())
	if err := svc.DeleteConversation(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
