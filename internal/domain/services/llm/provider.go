package llm

import "context"

// PromptMessage is one prior turn sent upstream as model context.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest is a provider-agnostic generation request.
type GenerateRequest struct {
	Model       string
	Messages    []PromptMessage
	System      *string
	Temperature *float64
}

// TokenUsage holds the provider-reported token counters for one generation.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// StreamEvent types emitted by providers.
const (
	StreamEventTextDelta      = "text_delta"
	StreamEventReasoningDelta = "reasoning_delta"
	StreamEventDone           = "done"
	StreamEventError          = "error"
)

// StreamEvent is one event on a provider's streaming channel. Text carries the
// delta for text_delta/reasoning_delta events. FinishReason and Usage are set
// on the done event; Err on the error event.
type StreamEvent struct {
	Type         string
	Text         string
	FinishReason string
	Usage        *TokenUsage
	Err          error
}

// Provider generates assistant replies through an upstream model API.
// StreamResponse returns a channel that is closed after the terminal done or
// error event; implementations must honor ctx cancellation.
type Provider interface {
	Name() string
	SupportsModel(model string) bool
	StreamResponse(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error)
}

// ProviderGetter resolves the provider responsible for a model id.
type ProviderGetter interface {
	GetProvider(model string) (Provider, error)
}
