package profile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"

	"parley/internal/domain"
	chatModels "parley/internal/domain/models/chat"
	"parley/internal/domain/repositories"
	chatSvc "parley/internal/domain/services/chat"
)

// passthroughTx runs the function directly; the fakes have no transactions.
type passthroughTx struct{}

func (passthroughTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

type fakeProfileRepo struct {
	profiles map[string]*chatModels.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[string]*chatModels.Profile{}}
}

func (r *fakeProfileRepo) UpsertProfile(ctx context.Context, profile *chatModels.Profile) error {
	if profile.IsDefault {
		for _, p := range r.profiles {
			if p.ID != profile.ID {
				p.IsDefault = false
			}
		}
	}
	p := *profile
	r.profiles[profile.ID] = &p
	return nil
}

func (r *fakeProfileRepo) GetProfile(ctx context.Context, id string) (*chatModels.Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (r *fakeProfileRepo) ListProfiles(ctx context.Context) ([]chatModels.Profile, error) {
	out := make([]chatModels.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeProfileRepo) CountProfiles(ctx context.Context) (int, error) {
	return len(r.profiles), nil
}

func (r *fakeProfileRepo) DeleteProfile(ctx context.Context, id string) (*chatModels.Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(r.profiles, id)
	return p, nil
}

func (r *fakeProfileRepo) PromoteAnyDefault(ctx context.Context) error {
	for _, p := range r.profiles {
		if p.IsDefault {
			return nil
		}
	}
	var ids []string
	for id := range r.profiles {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)
	r.profiles[ids[0]].IsDefault = true
	return nil
}

func (r *fakeProfileRepo) defaultCount() int {
	n := 0
	for _, p := range r.profiles {
		if p.IsDefault {
			n++
		}
	}
	return n
}

func newTestService(repo *fakeProfileRepo) chatSvc.ProfileService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, passthroughTx{}, logger)
}

func TestUpsertFirstProfileBecomesDefault(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := newTestService(repo)

	// Explicitly not requested as default.
	created, err := svc.UpsertProfile(context.Background(), &chatSvc.UpsertProfileRequest{
		ModelID:   "lorem-fast",
		Name:      "First",
		IsDefault: false,
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	if !created.IsDefault {
		t.Error("first profile must be forced default")
	}
	if created.ID == "" {
		t.Error("empty request id should get a generated id")
	}
	if created.Temperature != defaultTemperature {
		t.Errorf("temperature = %v, want default %v", created.Temperature, defaultTemperature)
	}
}

func TestUpsertNewDefaultDemotesOld(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := newTestService(repo)

	first, err := svc.UpsertProfile(context.Background(), &chatSvc.UpsertProfileRequest{
		ModelID: "lorem-fast", Name: "First",
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	second, err := svc.UpsertProfile(context.Background(), &chatSvc.UpsertProfileRequest{
		ModelID: "lorem-slow", Name: "Second", IsDefault: true,
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	if !second.IsDefault {
		t.Error("second profile should be default")
	}
	if repo.profiles[first.ID].IsDefault {
		t.Error("old default should be demoted")
	}
	if got := repo.defaultCount(); got != 1 {
		t.Errorf("default count = %d, want 1", got)
	}
}

func TestUpsertValidation(t *testing.T) {
	tests := []struct {
		name string
		req  *chatSvc.UpsertProfileRequest
	}{
		{"missing model", &chatSvc.UpsertProfileRequest{Name: "No Model"}},
		{"missing name", &chatSvc.UpsertProfileRequest{ModelID: "lorem-fast"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newFakeProfileRepo())
			_, err := svc.UpsertProfile(context.Background(), tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestUpsertUpdateInPlace(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := newTestService(repo)

	created, err := svc.UpsertProfile(context.Background(), &chatSvc.UpsertProfileRequest{
		ModelID: "lorem-fast", Name: "Original",
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	temp := 0.4
	updated, err := svc.UpsertProfile(context.Background(), &chatSvc.UpsertProfileRequest{
		ID: created.ID, ModelID: "lorem-slow", Name: "Renamed", Temperature: &temp, IsDefault: true,
	})
	if err != nil {
		t.Fatalf("UpsertProfile update: %v", err)
	}

	if updated.ID != created.ID {
		t.Errorf("update changed the id: %q -> %q", created.ID, updated.ID)
	}
	if len(repo.profiles) != 1 {
		t.Errorf("update created a new row, have %d", len(repo.profiles))
	}
	if got := repo.profiles[created.ID]; got.Name != "Renamed" || got.Temperature != 0.4 {
		t.Errorf("stored profile = %+v", got)
	}
}

func TestDeleteLastProfileRefused(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := newTestService(repo)

	created, err := svc.UpsertProfile(context.Background(), &chatSvc.UpsertProfileRequest{
		ModelID: "lorem-fast", Name: "Only",
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	_, err = svc.DeleteProfile(context.Background(), created.ID)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation for last-profile delete", err)
	}
	if len(repo.profiles) != 1 {
		t.Error("last profile must survive the delete attempt")
	}
}

func TestDeleteDefaultPromotesAnother(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := newTestService(repo)

	first, err := svc.UpsertProfile(context.Background(), &chatSvc.UpsertProfileRequest{
		ModelID: "lorem-fast", Name: "First",
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	if _, err := svc.UpsertProfile(context.Background(), &chatSvc.UpsertProfileRequest{
		ModelID: "lorem-slow", Name: "Second",
	}); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	deleted, err := svc.DeleteProfile(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}
	if !deleted.IsDefault {
		t.Error("deleted profile should report it was the default")
	}

	if got := repo.defaultCount(); got != 1 {
		t.Errorf("default count after promotion = %d, want 1", got)
	}
}

func TestDeleteNonDefaultLeavesDefaultAlone(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := newTestService(repo)

	first, err := svc.UpsertProfile(context.Background(), &chatSvc.UpsertProfileRequest{
		ModelID: "lorem-fast", Name: "First",
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	second, err := svc.UpsertProfile(context.Background(), &chatSvc.UpsertProfileRequest{
		ModelID: "lorem-slow", Name: "Second",
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	if _, err := svc.DeleteProfile(context.Background(), second.ID); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}

	if !repo.profiles[first.ID].IsDefault {
		t.Error("default profile should keep its flag")
	}
}

func TestDeleteMissingID(t *testing.T) {
	svc := newTestService(newFakeProfileRepo())
	if _, err := svc.DeleteProfile(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
