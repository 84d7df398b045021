package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"parley/internal/domain"
	chatSvc "parley/internal/domain/services/chat"
	"parley/internal/handler/sse"
	"parley/internal/httputil"
)

// ChatHandler handles the streaming chat endpoint
type ChatHandler struct {
	generation chatSvc.GenerationService
	sseConfig  *sse.Config
	logger     *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(generation chatSvc.GenerationService, sseConfig *sse.Config, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		generation: generation,
		sseConfig:  sseConfig,
		logger:     logger,
	}
}

// Generate runs one generation turn and streams status and delta frames back
// over a single long-lived response.
// POST /api/chat
//
// Synchronous failures (validation, lock contention, store errors before the
// stream opens) are returned as a JSON error body per the client contract;
// anything after the first frame is reported in-stream.
func (h *ChatHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req chatSvc.GenerateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		respondChatError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		respondChatError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Keep-alive pings cover upstream silence between deltas. They start
	// only after the first frame commits the stream; a ping fired during
	// the synchronous phase would commit a 200 before a pre-stream error
	// can still be reported as JSON.
	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	sink := &streamingSink{writer: writer, keepAlive: keepAlive, logger: h.logger}
	defer func() {
		keepAlive.Stop()
		// No ping may land on the response after the handler returns.
		sink.wait()
	}()

	if err := h.generation.Generate(r.Context(), &req, sink); err != nil {
		// No frame has been written yet, so a plain JSON error is still
		// possible here.
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrLocked):
			status = http.StatusConflict
		}
		respondChatError(w, status, err.Error())
		return
	}
}

// streamingSink writes frames through the SSE writer and arms the keep-alive
// ticker once the first frame has gone out. WriteEvent is only called from
// the generation goroutine, so the started flag needs no locking.
type streamingSink struct {
	writer    *sse.Writer
	keepAlive *sse.TickerKeepAlive
	logger    *slog.Logger
	stopped   <-chan struct{}
}

func (s *streamingSink) WriteEvent(eventType string, data interface{}) error {
	if err := s.writer.WriteEvent(eventType, data); err != nil {
		return err
	}
	if s.stopped == nil {
		s.stopped = s.keepAlive.Start(s.writer, s.logger)
	}
	return nil
}

// wait blocks until the keep-alive goroutine has exited, if it ever started.
func (s *streamingSink) wait() {
	if s.stopped != nil {
		<-s.stopped
	}
}

// respondChatError writes the chat endpoint's error shape: {"error": "..."}.
// The streaming client reads this instead of problem+json.
func respondChatError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
