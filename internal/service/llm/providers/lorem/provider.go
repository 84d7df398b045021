package lorem

import (
	"context"
	"fmt"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	domainllm "parley/internal/domain/services/llm"
)

// Provider is a mock provider that streams lorem ipsum text. Used for
// development and tests without real API keys. Models: lorem-fast,
// lorem-medium, lorem-slow, lorem-reasoning.
type Provider struct {
	generator *loremgen.Lorem
}

// NewProvider creates a new lorem ipsum provider.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// getStreamDelay returns the delay between words based on the model name.
func getStreamDelay(model string) time.Duration {
	if strings.Contains(model, "slow") {
		return 500 * time.Millisecond
	}
	if strings.Contains(model, "fast") {
		return 5 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// StreamResponse streams generated words with a model-dependent delay.
// lorem-reasoning models emit a short reasoning stream before the text.
func (p *Provider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	events := make(chan domainllm.StreamEvent, 10)

	go func() {
		defer close(events)

		delay := getStreamDelay(req.Model)
		outputTokens := 0

		if strings.Contains(req.Model, "reasoning") {
			n, err := p.streamWords(ctx, events, domainllm.StreamEventReasoningDelta, p.generator.Sentence(8, 12), delay)
			outputTokens += n
			if err != nil {
				tryEmitError(events, err)
				return
			}
		}

		n, err := p.streamWords(ctx, events, domainllm.StreamEventTextDelta, p.generator.Paragraph(2, 4), delay)
		outputTokens += n
		if err != nil {
			tryEmitError(events, err)
			return
		}

		select {
		case events <- domainllm.StreamEvent{
			Type:         domainllm.StreamEventDone,
			FinishReason: "stop",
			Usage: &domainllm.TokenUsage{
				PromptTokens:     p.estimateTokens(req.Messages),
				CompletionTokens: outputTokens,
				TotalTokens:      p.estimateTokens(req.Messages) + outputTokens,
			},
		}:
		case <-ctx.Done():
		}
	}()

	return events, nil
}

// streamWords emits text word by word, honoring ctx cancellation. Returns the
// number of words emitted.
func (p *Provider) streamWords(ctx context.Context, events chan<- domainllm.StreamEvent, eventType, text string, delay time.Duration) (int, error) {
	words := strings.Fields(text)
	for i, word := range words {
		select {
		case <-ctx.Done():
			return i, ctx.Err()
		default:
		}

		// The send itself must stay cancellable: once the consumer stops
		// reading, the buffer fills and a bare send would block forever.
		select {
		case events <- domainllm.StreamEvent{Type: eventType, Text: word + " "}:
		case <-ctx.Done():
			return i, ctx.Err()
		}

		time.Sleep(delay)
	}
	return len(words), nil
}

// tryEmitError delivers the terminal error event without blocking. When the
// reader has gone away the buffer may be full; the event is dropped because
// nobody is left to read it.
func tryEmitError(events chan<- domainllm.StreamEvent, err error) {
	select {
	case events <- domainllm.StreamEvent{Type: domainllm.StreamEventError, Err: err}:
	default:
	}
}

// estimateTokens gives a rough word-count proxy for prompt tokens.
func (p *Provider) estimateTokens(messages []domainllm.PromptMessage) int {
	total := 0
	for _, m := range messages {
		total += len(strings.Fields(m.Content))
	}
	return total
}
