package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"marketmotion/internal/access"
	"marketmotion/internal/api/v1/dto"
	"marketmotion/internal/middleware"
	"marketmotion/internal/model"
	"marketmotion/internal/repository"
	"marketmotion/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeServiceError translates service and repository sentinels to HTTP
// statuses. Anything unrecognized is a 500 with a generic message; internals
// stay in the logs.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrDuplicateKey):
		http.Error(w, "Conflict", http.StatusConflict)
	case errors.Is(err, service.ErrDailyLimitReached):
		http.Error(w, "Daily generation limit reached", http.StatusTooManyRequests)
	case errors.Is(err, service.ErrUpstreamUnavailable):
		http.Error(w, "Content providers unavailable, try again later", http.StatusBadGateway)
	case errors.Is(err, service.ErrNotSubscribed):
		http.Error(w, "Not subscribed to this topic", http.StatusForbidden)
	case errors.Is(err, service.ErrInvalidTopicCategory):
		http.Error(w, "Invalid topic category", http.StatusBadRequest)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// requesterFrom builds the entitlement view of the caller. A missing profile
// row is not an error here: the user authenticated but never synced, which
// entitles them to exactly what a free profile would get. Any other lookup
// failure is surfaced; treating it as profile-less would silently downgrade a
// paid subscriber.
func requesterFrom(ctx context.Context, userSvc service.UserService) (access.Requester, error) {
	userID := middleware.UserID(ctx)
	if userID == "" {
		return access.Requester{}, nil
	}
	req := access.Requester{Authenticated: true}
	profile, err := userSvc.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return req, nil
		}
		return access.Requester{}, err
	}
	req.Profile = profile
	return req, nil
}

func briefingToDTO(ba service.BriefingAccess) dto.BriefingResponseDTO {
	b := ba.Briefing
	resp := dto.BriefingResponseDTO{
		ID:              b.ID,
		Title:           b.Title,
		BriefingType:    b.BriefingType,
		BriefingDate:    b.BriefingDate.Format("2006-01-02"),
		Tier:            b.Tier,
		IsPublic:        b.IsPublic,
		WordCount:       b.WordCount,
		DurationSeconds: b.DurationSeconds,
		Metadata:        b.Metadata,
		CanAccess:       ba.CanAccess,
		AccessReason:    ba.AccessReason,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if ba.CanAccess {
		resp.TextContent = strPtr(b.TextContent)
		if ba.AudioURL != "" {
			resp.AudioURL = strPtr(ba.AudioURL)
		}
	}
	return resp
}

func topicToDTO(t model.Topic) dto.TopicResponseDTO {
	return dto.TopicResponseDTO{
		ID:          t.ID,
		Name:        t.Name,
		DisplayName: t.DisplayName,
		Category:    t.Category,
		Description: t.Description,
	}
}

func profileToDTO(u *model.UserProfile) dto.UserProfileResponseDTO {
	return dto.UserProfileResponseDTO{
		ID:                    u.ID,
		Email:                 u.Email,
		IsPaidSubscriber:      u.IsPaidSubscriber,
		SubscriptionTier:      u.SubscriptionTier,
		SubscriptionExpiresAt: u.SubscriptionExpiresAt,
		CreatedAt:             u.CreatedAt,
		UpdatedAt:             u.UpdatedAt,
	}
}

func strPtr(s string) *string {
	return &s
}
