package chat

// Profile is a saved generation configuration: a model on the routing API plus
// an optional system instruction and sampling temperature. Exactly one profile
// carries the default flag once any profile exists; the application refuses to
// operate with zero profiles.
type Profile struct {
	ID            string                 `json:"id"`
	ModelID       string                 `json:"modelId"`
	Name          string                 `json:"name"`
	SystemMessage *string                `json:"systemMessage,omitempty"`
	Temperature   float64                `json:"temperature"`
	Metadata      map[string]interface{} `json:"metadata"`
	IsDefault     bool                   `json:"isDefault"`
}
