package chat

import (
	"encoding/json"
	"fmt"
)

// Generation status values, mirrored by the client session state machine.
const (
	StatusThinking  = "thinking"
	StatusReasoning = "reasoning"
	StatusDone      = "done"
	StatusFailed    = "failed"
)

// SSE event type constants
const (
	SSEEventStatus         = "status"          // Generation status transition
	SSEEventTextDelta      = "text_delta"      // Incremental assistant text
	SSEEventReasoningDelta = "reasoning_delta" // Incremental reasoning text
)

// StatusEvent is the in-stream marker describing generation progress, distinct
// from the generated text itself. MessageID tags the message the status
// pertains to: the user message for thinking/reasoning/failed, the assistant
// message for done.
type StatusEvent struct {
	Status    string `json:"status"`
	MessageID string `json:"messageId"`
}

// DoneEvent is the terminal success frame. It carries the assistant message id
// so the client can replace its pending slot with the persisted row.
type DoneEvent struct {
	Status           string `json:"status"`
	MessageID        string `json:"messageId"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
	TotalTokens      int    `json:"totalTokens"`
	DurationMs       int64  `json:"durationMs"`
}

// FailedEvent is the terminal failure frame, tagged with the id of the user
// message whose row was marked sent=false.
type FailedEvent struct {
	Status    string `json:"status"`
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
}

// DeltaEvent carries one incremental chunk of assistant output.
type DeltaEvent struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

// FormatSSE formats an event for transmission:
//
//	event: event_name
//	data: {"field": "value"}
func FormatSSE(eventType string, data interface{}) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal SSE event data: %w", err)
	}

	return fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, string(payload)), nil
}
