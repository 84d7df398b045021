package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domainllm "parley/internal/domain/services/llm"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Provider implements the Provider interface against the OpenRouter routing
// API (OpenAI-compatible chat completions with streaming).
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewProvider creates a new OpenRouter provider with the given API key.
func NewProvider(apiKey, baseURL string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		apiKey:  apiKey,
		baseURL: baseURL,
		// No overall timeout: generation streams are long-lived and bounded
		// by the request context instead.
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openrouter"
}

// SupportsModel returns true for every model: the routing API fronts all
// upstream vendors. Register this provider last.
func (p *Provider) SupportsModel(model string) bool {
	return model != ""
}

// chatCompletionRequest is the wire format for the chat completions call.
type chatCompletionRequest struct {
	Model            string                    `json:"model"`
	Messages         []domainllm.PromptMessage `json:"messages"`
	Stream           bool                      `json:"stream"`
	Temperature      *float64                  `json:"temperature,omitempty"`
	IncludeReasoning bool                      `json:"include_reasoning"`
	StreamOptions    *streamOptions            `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// StreamResponse opens a streaming chat completion and converts the SSE chunk
// stream into provider events. The returned channel closes after the terminal
// done or error event.
func (p *Provider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	messages := req.Messages
	if req.System != nil && *req.System != "" {
		messages = append([]domainllm.PromptMessage{{Role: "system", Content: *req.System}}, messages...)
	}

	body := chatCompletionRequest{
		Model:            req.Model,
		Messages:         messages,
		Stream:           true,
		Temperature:      req.Temperature,
		IncludeReasoning: true,
		StreamOptions:    &streamOptions{IncludeUsage: true},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal chat completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call chat completions: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("chat completions returned %d: %s", resp.StatusCode, string(data))
	}

	events := make(chan domainllm.StreamEvent)
	go p.consumeStream(ctx, resp.Body, events)

	return events, nil
}
