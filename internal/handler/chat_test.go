package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parley/internal/domain"
	chatModels "parley/internal/domain/models/chat"
	chatSvc "parley/internal/domain/services/chat"
	"parley/internal/handler/sse"
)

// stubGeneration delegates to a test-provided function.
type stubGeneration struct {
	fn func(ctx context.Context, req *chatSvc.GenerateRequest, sink chatSvc.EventSink) error
}

func (s *stubGeneration) Generate(ctx context.Context, req *chatSvc.GenerateRequest, sink chatSvc.EventSink) error {
	return s.fn(ctx, req, sink)
}

func newChatRequest(t *testing.T) *http.Request {
	t.Helper()
	body := `{"message":{"id":"m1","content":"hi","role":"user","modelId":"lorem-fast","conversationId":"c1"}}`
	return httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
}

func newChatHandler(gen chatSvc.GenerationService, keepAliveInterval time.Duration) *ChatHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewChatHandler(gen, &sse.Config{KeepAliveInterval: keepAliveInterval}, logger)
}

func TestGenerateSlowPreStreamFailureStaysJSON(t *testing.T) {
	// The synchronous phase outlasts several keep-alive intervals before
	// failing without a single frame. No ping may commit the response; the
	// client must still get the JSON error body.
	gen := &stubGeneration{fn: func(ctx context.Context, req *chatSvc.GenerateRequest, sink chatSvc.EventSink) error {
		time.Sleep(40 * time.Millisecond)
		return fmt.Errorf("conversation c1: %w", domain.ErrLocked)
	}}
	h := newChatHandler(gen, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	h.Generate(rec, newChatRequest(t))

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	body := rec.Body.String()
	if strings.Contains(body, "keepalive") {
		t.Errorf("body contains a keep-alive frame: %q", body)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("body is not the JSON error shape: %q", body)
	}
	if payload["error"] == "" {
		t.Errorf("payload = %v, want an error field", payload)
	}
}

func TestGenerateKeepAliveStartsAfterFirstFrame(t *testing.T) {
	gen := &stubGeneration{fn: func(ctx context.Context, req *chatSvc.GenerateRequest, sink chatSvc.EventSink) error {
		err := sink.WriteEvent(chatModels.SSEEventStatus, chatModels.StatusEvent{
			Status:    chatModels.StatusThinking,
			MessageID: "m1",
		})
		if err != nil {
			return err
		}
		// Upstream silence long enough for pings to fire.
		time.Sleep(40 * time.Millisecond)
		return nil
	}}
	h := newChatHandler(gen, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	h.Generate(rec, newChatRequest(t))

	body := rec.Body.String()
	frameAt := strings.Index(body, "event: status")
	pingAt := strings.Index(body, ": keepalive")
	if frameAt == -1 {
		t.Fatalf("body = %q, want a status frame", body)
	}
	if pingAt == -1 {
		t.Fatalf("body = %q, want keep-alive pings during upstream silence", body)
	}
	if pingAt < frameAt {
		t.Errorf("keep-alive ping preceded the first frame: %q", body)
	}
}
