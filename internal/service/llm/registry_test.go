package llm

import (
	"context"
	"testing"

	domainllm "parley/internal/domain/services/llm"
)

type stubProvider struct {
	name   string
	prefix string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) SupportsModel(model string) bool {
	return len(model) >= len(p.prefix) && model[:len(p.prefix)] == p.prefix
}

func (p *stubProvider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	return nil, nil
}

func TestRegistryFirstMatchWins(t *testing.T) {
	specific := &stubProvider{name: "lorem", prefix: "lorem-"}
	catchAll := &stubProvider{name: "openrouter", prefix: ""}

	r := NewProviderRegistry()
	r.Register(specific)
	r.Register(catchAll)

	got, err := r.GetProvider("lorem-fast")
	if err != nil {
		t.Fatalf("GetProvider: %v", err)
	}
	if got.Name() != "lorem" {
		t.Errorf("provider = %s, want lorem (registration order decides)", got.Name())
	}

	got, err = r.GetProvider("anthropic/claude-3.5-sonnet")
	if err != nil {
		t.Fatalf("GetProvider: %v", err)
	}
	if got.Name() != "openrouter" {
		t.Errorf("provider = %s, want openrouter", got.Name())
	}
}

func TestRegistryUnknownModel(t *testing.T) {
	r := NewProviderRegistry()
	r.Register(&stubProvider{name: "lorem", prefix: "lorem-"})

	if _, err := r.GetProvider("gpt-4o"); err == nil {
		t.Error("unsupported model should return an error")
	}
}
