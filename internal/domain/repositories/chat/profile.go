package chat

import (
	"context"

	chatModels "parley/internal/domain/models/chat"
)

// ProfileRepository manages saved generation profiles.
type ProfileRepository interface {
	// UpsertProfile creates or replaces a profile by id. When the profile is
	// marked default the flag is cleared on every other profile in the same
	// transaction.
	UpsertProfile(ctx context.Context, profile *chatModels.Profile) error

	// GetProfile retrieves a profile by id.
	GetProfile(ctx context.Context, id string) (*chatModels.Profile, error)

	// ListProfiles returns all profiles.
	ListProfiles(ctx context.Context) ([]chatModels.Profile, error)

	// CountProfiles returns the number of profiles.
	CountProfiles(ctx context.Context) (int, error)

	// DeleteProfile removes a profile. Returns the deleted profile so the
	// caller can decide whether default promotion is needed.
	DeleteProfile(ctx context.Context, id string) (*chatModels.Profile, error)

	// PromoteAnyDefault marks an arbitrary remaining profile as default when
	// none currently carries the flag.
	PromoteAnyDefault(ctx context.Context) error
}
