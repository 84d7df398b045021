package catalog

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry holds the embedded model metadata for all known providers.
type Registry struct {
	providers map[string]*ProviderModels
	mu        sync.RWMutex
}

// NewRegistry creates a registry and loads the embedded YAML files.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		providers: make(map[string]*ProviderModels),
	}

	if err := r.loadProviderFile("openrouter"); err != nil {
		return nil, fmt.Errorf("load openrouter catalog: %w", err)
	}

	return r, nil
}

func (r *Registry) loadProviderFile(provider string) error {
	filename := fmt.Sprintf("config/%s.yaml", provider)
	data, err := configFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	var models ProviderModels
	if err := yaml.Unmarshal(data, &models); err != nil {
		return fmt.Errorf("unmarshal %s: %w", filename, err)
	}

	// Propagate map keys into the entries
	for id, info := range models.Models {
		info.ID = id
	}

	r.mu.Lock()
	r.providers[provider] = &models
	r.mu.Unlock()

	return nil
}

// GetModel returns metadata for a model id, searching all providers.
func (r *Registry) GetModel(modelID string) (*ModelInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, provider := range r.providers {
		if info, ok := provider.Models[modelID]; ok {
			return info, true
		}
	}
	return nil, false
}

// ListModels returns metadata for every known model.
func (r *Registry) ListModels() []*ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var models []*ModelInfo
	for _, provider := range r.providers {
		for _, info := range provider.Models {
			models = append(models, info)
		}
	}
	return models
}
