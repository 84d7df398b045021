package openrouter

import (
	"context"
	"io"
	"strings"
	"testing"

	domainllm "parley/internal/domain/services/llm"
)

func collectEvents(t *testing.T, body string) []domainllm.StreamEvent {
	t.Helper()

	p, err := NewProvider("test-key", "")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	events := make(chan domainllm.StreamEvent)
	go p.consumeStream(context.Background(), io.NopCloser(strings.NewReader(body)), events)

	var out []domainllm.StreamEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestConsumeStreamTextDeltas(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		``,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		``,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`,
		``,
		`data: [DONE]`,
		``,
	}, "\n")

	events := collectEvents(t, body)

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].Type != domainllm.StreamEventTextDelta || events[0].Text != "Hel" {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[1].Type != domainllm.StreamEventTextDelta || events[1].Text != "lo" {
		t.Errorf("event 1 = %+v", events[1])
	}

	done := events[2]
	if done.Type != domainllm.StreamEventDone {
		t.Fatalf("terminal event = %+v, want done", done)
	}
	if done.FinishReason != "stop" {
		t.Errorf("finish reason = %q, want stop", done.FinishReason)
	}
	if done.Usage == nil || done.Usage.TotalTokens != 7 {
		t.Errorf("usage = %+v, want total 7", done.Usage)
	}
}

func TestConsumeStreamReasoning(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"reasoning":"step one. "}}]}`,
		`data: {"choices":[{"delta":{"reasoning":"step two."}}]}`,
		`data: {"choices":[{"delta":{"content":"Answer"}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	}, "\n")

	events := collectEvents(t, body)

	if len(events) != 4 {
		t.Fatalf("got %d events, want 4: %+v", len(events), events)
	}
	if events[0].Type != domainllm.StreamEventReasoningDelta || events[0].Text != "step one. " {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[2].Type != domainllm.StreamEventTextDelta || events[2].Text != "Answer" {
		t.Errorf("event 2 = %+v", events[2])
	}
	if events[3].Type != domainllm.StreamEventDone {
		t.Errorf("terminal event = %+v", events[3])
	}
}

func TestConsumeStreamIgnoresCommentsAndKeepAlives(t *testing.T) {
	body := strings.Join([]string{
		`: OPENROUTER PROCESSING`,
		``,
		`data: {"choices":[{"delta":{"content":"hi"}}]}`,
		`: keep-alive`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	}, "\n")

	events := collectEvents(t, body)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Text != "hi" {
		t.Errorf("event 0 = %+v", events[0])
	}
}

func TestConsumeStreamDropWithoutDone(t *testing.T) {
	body := `data: {"choices":[{"delta":{"content":"par"}}]}` + "\n"

	events := collectEvents(t, body)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	last := events[len(events)-1]
	if last.Type != domainllm.StreamEventError {
		t.Errorf("terminal event = %+v, want error on dropped stream", last)
	}
	if last.Err == nil {
		t.Error("dropped stream should carry an error")
	}
}

func TestConsumeStreamMalformedChunk(t *testing.T) {
	body := `data: {not json}` + "\n"

	events := collectEvents(t, body)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(events), events)
	}
	if events[0].Type != domainllm.StreamEventError {
		t.Errorf("event = %+v, want decode error", events[0])
	}
}

func TestNewProviderRequiresKey(t *testing.T) {
	if _, err := NewProvider("", ""); err == nil {
		t.Error("empty api key should be rejected")
	}
}
