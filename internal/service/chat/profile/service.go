package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"parley/internal/config"
	"parley/internal/domain"
	chatModels "parley/internal/domain/models/chat"
	"parley/internal/domain/repositories"
	chatRepo "parley/internal/domain/repositories/chat"
	chatSvc "parley/internal/domain/services/chat"
)

// defaultTemperature applies when a profile is saved without one.
const defaultTemperature = 1.0

// Service implements the ProfileService interface
type Service struct {
	profileRepo chatRepo.ProfileRepository
	txManager   repositories.TransactionManager
	logger      *slog.Logger
}

// NewService creates a new profile service
func NewService(
	profileRepo chatRepo.ProfileRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) chatSvc.ProfileService {
	return &Service{
		profileRepo: profileRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

func validateUpsertRequest(req *chatSvc.UpsertProfileRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ModelID, validation.Required),
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxProfileNameLength),
		),
	)
}

// UpsertProfile creates a profile when the id is empty (a fresh time-ordered
// id is generated), updates in place otherwise. Setting IsDefault clears the
// flag on every other profile inside one transaction, so at most one default
// can exist at any time.
func (s *Service) UpsertProfile(ctx context.Context, req *chatSvc.UpsertProfileRequest) (*chatModels.Profile, error) {
	if err := validateUpsertRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	temperature := defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	profile := &chatModels.Profile{
		ID:            req.ID,
		ModelID:       req.ModelID,
		Name:          strings.TrimSpace(req.Name),
		SystemMessage: req.SystemMessage,
		Temperature:   temperature,
		Metadata:      metadata,
		IsDefault:     req.IsDefault,
	}
	if profile.ID == "" {
		profile.ID = uuid.Must(uuid.NewV7()).String()
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		// The first profile is always the default, regardless of the flag in
		// the request: the application refuses to run with no default.
		count, err := s.profileRepo.CountProfiles(txCtx)
		if err != nil {
			return err
		}
		if count == 0 {
			profile.IsDefault = true
		}

		return s.profileRepo.UpsertProfile(txCtx, profile)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile saved",
		"id", profile.ID,
		"model_id", profile.ModelID,
		"is_default", profile.IsDefault,
	)

	return profile, nil
}

// ListProfiles returns all profiles
func (s *Service) ListProfiles(ctx context.Context) ([]chatModels.Profile, error) {
	return s.profileRepo.ListProfiles(ctx)
}

// DeleteProfile removes a profile. The last remaining profile cannot be
// deleted; when the deleted profile was the default, an arbitrary remaining
// profile is promoted so the single-default invariant holds.
func (s *Service) DeleteProfile(ctx context.Context, id string) (*chatModels.Profile, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: profile id is required", domain.ErrValidation)
	}

	var deleted *chatModels.Profile
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		count, err := s.profileRepo.CountProfiles(txCtx)
		if err != nil {
			return err
		}
		if count <= 1 {
			return fmt.Errorf("%w: cannot delete the last remaining profile", domain.ErrValidation)
		}

		deleted, err = s.profileRepo.DeleteProfile(txCtx, id)
		if err != nil {
			return err
		}

		if deleted.IsDefault {
			return s.profileRepo.PromoteAnyDefault(txCtx)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile deleted",
		"id", deleted.ID,
		"was_default", deleted.IsDefault,
	)

	return deleted, nil
}
