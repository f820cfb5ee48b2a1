package handler

import (
	"encoding/json"
	"net/http"

	"marketmotion/internal/api/v1/dto"
	"marketmotion/internal/middleware"
	"marketmotion/internal/service"

	"github.com/go-playground/validator/v10"
)

// UserHandler handles profile endpoints.
type UserHandler struct {
	userService service.UserService
	validate    *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService service.UserService, validate *validator.Validate) *UserHandler {
	return &UserHandler{userService: userService, validate: validate}
}

// RegisterRoutes mounts user routes.
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/users/sync", authMw(http.HandlerFunc(h.syncProfile)))
	mux.Handle("/users/me", authMw(http.HandlerFunc(h.getProfile)))
	mux.Handle("/users/me/subscription", authMw(http.HandlerFunc(h.updateSubscription)))
}

// syncProfile godoc
// @Summary Sync the caller's profile
// @Description Ensures a profile row exists for the authenticated identity and refreshes its email. Idempotent.
// @Tags users
// @Produce json
// @Success 200 {object} dto.UserProfileResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Router /users/sync [post]
func (h *UserHandler) syncProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	profile, err := h.userService.SyncProfile(r.Context(), userID, middleware.UserEmail(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToDTO(profile))
}

// getProfile godoc
// @Summary Get the caller's profile
// @Tags users
// @Produce json
// @Success 200 {object} dto.UserProfileResponseDTO
// @Failure 404 {string} string "Profile not found, call /users/sync first"
// @Router /users/me [get]
func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	profile, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToDTO(profile))
}

// updateSubscription godoc
// @Summary Update the caller's subscription
// @Description Applies a billing change. The paid flag is derived from the tier.
// @Tags users
// @Accept json
// @Produce json
// @Param subscription body dto.SubscriptionUpdateDTO true "Subscription change"
// @Success 200 {object} dto.UserProfileResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Router /users/me/subscription [put]
func (h *UserHandler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var body dto.SubscriptionUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	profile, err := h.userService.UpdateSubscription(r.Context(), userID, body.Tier, body.ExpiresAt)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToDTO(profile))
}
