package apiserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"matchlink/internal/middleware"
	"matchlink/internal/models"
	"matchlink/internal/services"

	"github.com/gorilla/mux"
)

// ProfileHandler wraps the HTTP handlers for profile management.
type ProfileHandler struct {
	profileService services.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// CreateProfileHandler handles POST /api/v1/profiles
func (h *ProfileHandler) CreateProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	var input services.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	profile, err := h.profileService.CreateProfile(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, profile)
}

// UpdateMyProfileHandler handles PUT /api/v1/profiles/me
func (h *ProfileHandler) UpdateMyProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	var input services.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	profile, err := h.profileService.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, profile)
}

// GetMyProfileHandler handles GET /api/v1/profiles/me
func (h *ProfileHandler) GetMyProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	profile, err := h.profileService.GetOwnProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, profile)
}

// GetProfileHandler handles GET /api/v1/profiles/{userID}
func (h *ProfileHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	targetID, err := strconv.ParseUint(mux.Vars(r)["userID"], 10, 32)
	if err != nil {
		writeJSONError(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	profile, err := h.profileService.GetPublicProfile(r.Context(), viewerID, uint(targetID))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, profile)
}

// ListProfilesByStatusHandler handles GET /api/v1/admin/profiles?status=pending
func (h *ProfileHandler) ListProfilesByStatusHandler(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetRoleFromContext(r.Context())

	status := models.ProfileStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.ProfileStatusPending
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	profiles, err := h.profileService.ListByStatus(r.Context(), role, status, page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	writeJSONResponse(w, http.StatusOK, profiles)
}

// ModerateProfileHandler handles POST /api/v1/admin/profiles/{userID}/approve
// and POST /api/v1/admin/profiles/{userID}/reject
func (h *ProfileHandler) ModerateProfileHandler(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, _ := middleware.GetRoleFromContext(r.Context())

		targetID, err := strconv.ParseUint(mux.Vars(r)["userID"], 10, 32)
		if err != nil {
			writeJSONError(w, "invalid user ID", http.StatusBadRequest)
			return
		}

		profile, err := h.profileService.Moderate(r.Context(), role, uint(targetID), approve)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, profile)
	}
}
