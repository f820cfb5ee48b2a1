package service

import (
	"context"
	"fmt"
	"time"

	"marketmotion/internal/model"
	"marketmotion/internal/repository"

	"github.com/rs/zerolog"
)

// Daily generation budgets. Briefings are shared content, so the ledger is
// derived from the catalog itself: a slot that exists is a slot that was spent.
const (
	dailyTopicBriefingLimit = 1
)

// QuotaService answers whether a generation request fits today's budget.
type QuotaService interface {
	// CheckSlotAvailable returns ErrDailyLimitReached when (date, type, tier)
	// already holds a briefing.
	CheckSlotAvailable(ctx context.Context, date time.Time, briefingType, tier string) error
	// CheckTopicQuota returns ErrDailyLimitReached when the user's topic
	// already produced today's briefing.
	CheckTopicQuota(ctx context.Context, userID, topicID string, date time.Time) error
	// PremiumSlotsRemaining reports how many scheduled premium slots are still
	// open for the date.
	PremiumSlotsRemaining(ctx context.Context, date time.Time) (int, error)
}

type quotaService struct {
	usageRepo   repository.UsageRepository
	quotaLogger zerolog.Logger
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(usageRepo repository.UsageRepository, logger zerolog.Logger) QuotaService {
	return &quotaService{
		usageRepo:   usageRepo,
		quotaLogger: logger.With().Str("service", "QuotaService").Logger(),
	}
}

func (s *quotaService) CheckSlotAvailable(ctx context.Context, date time.Time, briefingType, tier string) error {
	exists, err := s.usageRepo.SlotExists(ctx, date, briefingType, tier)
	if err != nil {
		s.quotaLogger.Error().Err(err).Str("briefing_type", briefingType).Msg("Failed to check slot availability")
		return fmt.Errorf("failed to check slot availability: %w", err)
	}
	if exists {
		return ErrDailyLimitReached
	}
	return nil
}

func (s *quotaService) CheckTopicQuota(ctx context.Context, userID, topicID string, date time.Time) error {
	count, err := s.usageRepo.CountTopicBriefingsForUser(ctx, userID, topicID, date)
	if err != nil {
		s.quotaLogger.Error().Err(err).Str("topic_id", topicID).Msg("Failed to check topic quota")
		return fmt.Errorf("failed to check topic quota: %w", err)
	}
	if count >= dailyTopicBriefingLimit {
		return ErrDailyLimitReached
	}
	return nil
}

func (s *quotaService) PremiumSlotsRemaining(ctx context.Context, date time.Time) (int, error) {
	used, err := s.usageRepo.CountPremiumSlots(ctx, date, model.PremiumSlotTypes)
	if err != nil {
		s.quotaLogger.Error().Err(err).Msg("Failed to count premium slots")
		return 0, fmt.Errorf("failed to count premium slots: %w", err)
	}
	remaining := len(model.PremiumSlotTypes) - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
