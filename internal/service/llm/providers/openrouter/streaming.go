package openrouter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	domainllm "parley/internal/domain/services/llm"
)

// streamChunk is one SSE data frame of a streaming chat completion.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// consumeStream reads the SSE body line by line and emits provider events.
// The upstream terminates the stream with a "[DONE]" sentinel; usage arrives
// on the final chunk before it. Closes body and the event channel when done.
func (p *Provider) consumeStream(ctx context.Context, body io.ReadCloser, events chan<- domainllm.StreamEvent) {
	defer close(events)
	defer body.Close()

	var (
		finishReason string
		usage        *domainllm.TokenUsage
	)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		// SSE comments and event-type lines are irrelevant here; the
		// completions stream only uses data frames.
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			p.emit(ctx, events, domainllm.StreamEvent{
				Type:         domainllm.StreamEventDone,
				FinishReason: finishReason,
				Usage:        usage,
			})
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			p.emit(ctx, events, domainllm.StreamEvent{
				Type: domainllm.StreamEventError,
				Err:  fmt.Errorf("decode stream chunk: %w", err),
			})
			return
		}

		if chunk.Usage != nil {
			usage = &domainllm.TokenUsage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			finishReason = *choice.FinishReason
		}

		if choice.Delta.Reasoning != "" {
			if !p.emit(ctx, events, domainllm.StreamEvent{
				Type: domainllm.StreamEventReasoningDelta,
				Text: choice.Delta.Reasoning,
			}) {
				return
			}
		}

		if choice.Delta.Content != "" {
			if !p.emit(ctx, events, domainllm.StreamEvent{
				Type: domainllm.StreamEventTextDelta,
				Text: choice.Delta.Content,
			}) {
				return
			}
		}
	}

	// Stream ended without [DONE]: either the context was cancelled or the
	// connection dropped mid-generation.
	err := scanner.Err()
	if err == nil {
		err = fmt.Errorf("stream closed before completion")
	}
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	p.emit(ctx, events, domainllm.StreamEvent{
		Type: domainllm.StreamEventError,
		Err:  err,
	})
}

// emit sends an event unless the context is cancelled. Returns false when the
// consumer is gone.
func (p *Provider) emit(ctx context.Context, events chan<- domainllm.StreamEvent, ev domainllm.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
