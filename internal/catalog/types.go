package catalog

// ModelInfo is the static metadata for one model on the routing API. It backs
// the opaque metadata blob stored on profiles and lets providers sanity-check
// model ids without a network call.
type ModelInfo struct {
	ID string `yaml:"-" json:"id"`

	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`

	// SupportsReasoning means the model can emit a separate reasoning stream
	// alongside its text output.
	SupportsReasoning bool `yaml:"supports_reasoning" json:"supports_reasoning"`

	ContextWindow int `yaml:"context_window" json:"context_window"`
	MaxOutput     int `yaml:"max_output" json:"max_output"`
}

// ProviderModels is the YAML file layout: one provider, many models keyed by
// model id.
type ProviderModels struct {
	Provider string                `yaml:"provider"`
	Models   map[string]*ModelInfo `yaml:"models"`
}
