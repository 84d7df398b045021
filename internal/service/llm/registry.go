package llm

import (
	"fmt"
	"sync"

	domainllm "parley/internal/domain/services/llm"
)

// ProviderRegistry routes model ids to the provider that serves them. The
// routing API serves almost everything; the lorem provider picks up its
// lorem-* test models first.
type ProviderRegistry struct {
	providers []domainllm.Provider
	mu        sync.RWMutex
}

// NewProviderRegistry creates an empty provider registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{}
}

// Register adds a provider. Providers are consulted in registration order.
func (r *ProviderRegistry) Register(p domainllm.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// GetProvider returns the first registered provider that supports the model.
func (r *ProviderRegistry) GetProvider(model string) (domainllm.Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.providers {
		if p.SupportsModel(model) {
			return p, nil
		}
	}

	return nil, fmt.Errorf("no provider supports model '%s'", model)
}
