package service

import (
	"context"
	"fmt"
	"time"

	"marketmotion/internal/model"
	"marketmotion/internal/repository"

	"github.com/rs/zerolog"
)

// UserService manages subscriber profiles.
type UserService interface {
	// SyncProfile ensures a profile row exists for the authenticated identity
	// and refreshes its email. Called on every login.
	SyncProfile(ctx context.Context, userID, email string) (*model.UserProfile, error)
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	// UpdateSubscription applies a billing event. The paid flag is derived
	// from the tier; expiry may be nil for open-ended subscriptions.
	UpdateSubscription(ctx context.Context, userID, tier string, expiresAt *time.Time) (*model.UserProfile, error)
}

type userService struct {
	repo       repository.UserRepository
	userLogger zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo repository.UserRepository, logger zerolog.Logger) UserService {
	return &userService{
		repo:       repo,
		userLogger: logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) SyncProfile(ctx context.Context, userID, email string) (*model.UserProfile, error) {
	profile, err := s.repo.UpsertProfile(ctx, userID, email)
	if err != nil {
		s.userLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to sync profile")
		return nil, err
	}
	return profile, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	return s.repo.GetProfile(ctx, userID)
}

func (s *userService) UpdateSubscription(ctx context.Context, userID, tier string, expiresAt *time.Time) (*model.UserProfile, error) {
	switch tier {
	case model.SubscriptionTierFree, model.SubscriptionTierBasic, model.SubscriptionTierPremium:
	default:
		return nil, fmt.Errorf("unknown subscription tier %q", tier)
	}

	isPaid := tier != model.SubscriptionTierFree
	if err := s.repo.UpdateSubscription(ctx, userID, tier, isPaid, expiresAt); err != nil {
		s.userLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to update subscription")
		return nil, err
	}
	return s.repo.GetProfile(ctx, userID)
}
