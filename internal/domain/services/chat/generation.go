package chat

import (
	"context"
)

// IncomingMessage is the single new user message submitted per generation
// turn. The client sends only the newest message; prior context comes from the
// context cache.
type IncomingMessage struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	Role           string   `json:"role"`
	ModelID        string   `json:"modelId"`
	ProfileID      string   `json:"profileId"`
	ConversationID string   `json:"conversationId"`
	Instruction    *string  `json:"instruction,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
}

// GenerateRequest is the chat endpoint request body.
type GenerateRequest struct {
	Message *IncomingMessage `json:"message"`
}

// EventSink receives stream frames as they are produced. The HTTP handler
// backs it with a flushing SSE writer; tests record events in memory.
type EventSink interface {
	WriteEvent(eventType string, data interface{}) error
}

// GenerationService orchestrates one generation turn: persist the user
// message, merge cached history, call the upstream provider, stream frames to
// the sink, and persist the assistant reply.
type GenerationService interface {
	// Generate runs the turn to completion. Errors occurring before the first
	// frame is written are returned; failures mid-stream surface as a failed
	// status frame instead.
	Generate(ctx context.Context, req *GenerateRequest, sink EventSink) error
}
