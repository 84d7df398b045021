package chat

import (
	"context"

	chatModels "parley/internal/domain/models/chat"
)

// UpsertProfileRequest creates a profile when ID is empty, updates in place
// otherwise.
type UpsertProfileRequest struct {
	ID            string                 `json:"id"`
	ModelID       string                 `json:"modelId"`
	Name          string                 `json:"name"`
	SystemMessage *string                `json:"systemMessage,omitempty"`
	Temperature   *float64               `json:"temperature,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
	IsDefault     bool                   `json:"isDefault"`
}

// ProfileService manages saved generation profiles and the single-default
// invariant.
type ProfileService interface {
	// UpsertProfile creates or updates a profile. Setting IsDefault clears
	// the flag on all other profiles.
	UpsertProfile(ctx context.Context, req *UpsertProfileRequest) (*chatModels.Profile, error)

	// ListProfiles returns all profiles. An empty result signals onboarding.
	ListProfiles(ctx context.Context) ([]chatModels.Profile, error)

	// DeleteProfile removes a profile. Deleting the last remaining profile is
	// refused; deleting the default promotes an arbitrary remaining profile.
	DeleteProfile(ctx context.Context, id string) (*chatModels.Profile, error)
}
