package handler

import (
	"log/slog"
	"net/http"

	chatSvc "parley/internal/domain/services/chat"
	"parley/internal/httputil"
)

// ProfileHandler handles profile CRUD
type ProfileHandler struct {
	profiles chatSvc.ProfileService
	logger   *slog.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles chatSvc.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		logger:   logger,
	}
}

// List returns all configured profiles.
// GET /api/profiles
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.ListProfiles(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, profiles)
}

// Upsert creates or updates a profile.
// POST /api/profiles
func (h *ProfileHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req chatSvc.UpsertProfileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.profiles.UpsertProfile(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, profile)
}

type deleteProfileRequest struct {
	ID string `json:"id"`
}

// Delete removes a profile. The deleted row is returned so the client can
// undo locally without refetching.
// POST /api/profiles/delete
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteProfileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deleted, err := h.profiles.DeleteProfile(r.Context(), req.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, deleted)
}
