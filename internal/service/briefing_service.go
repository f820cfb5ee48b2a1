package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"marketmotion/internal/access"
	"marketmotion/internal/cache"
	"marketmotion/internal/metrics"
	"marketmotion/internal/model"
	"marketmotion/internal/repository"
	"marketmotion/internal/util"

	"github.com/rs/zerolog"
)

// todaysBriefingsTTL bounds staleness of the shared catalog feed. The feed
// changes a handful of times per day, so a short TTL keeps the read path off
// the database without delaying new briefings noticeably.
const todaysBriefingsTTL = 60 * time.Second

// BriefingAccess pairs a briefing with the requester's entitlement decision.
// When CanAccess is false the briefing's content fields have been stripped.
type BriefingAccess struct {
	Briefing     *model.Briefing
	CanAccess    bool
	AccessReason string
	AudioURL     string
}

// BriefingService is the read side of the catalog: every briefing leaves this
// layer wrapped in an access decision for the specific requester.
type BriefingService interface {
	GetBriefingWithAccess(ctx context.Context, id string, req access.Requester) (*BriefingAccess, error)
	ListTodaysBriefings(ctx context.Context, req access.Requester) ([]BriefingAccess, error)
	ListFreeBriefings(ctx context.Context, limit int, req access.Requester) ([]BriefingAccess, error)
	ListBriefings(ctx context.Context, filter repository.ListBriefingsFilter, req access.Requester) ([]BriefingAccess, error)
	// ListAccessibleBriefings is the "my briefings" feed: today's catalog
	// filtered down to entries the requester is entitled to.
	ListAccessibleBriefings(ctx context.Context, req access.Requester) ([]BriefingAccess, error)
}

type briefingService struct {
	repo           repository.BriefingRepository
	evaluator      *access.Evaluator
	audioStore     AudioStore
	catalogCache   *cache.RedisCache
	briefingLogger zerolog.Logger
}

// NewBriefingService creates a new BriefingService. The cache may be nil, in
// which case every read goes to the repository.
func NewBriefingService(
	repo repository.BriefingRepository,
	evaluator *access.Evaluator,
	audioStore AudioStore,
	catalogCache *cache.RedisCache,
	logger zerolog.Logger,
) BriefingService {
	return &briefingService{
		repo:           repo,
		evaluator:      evaluator,
		audioStore:     audioStore,
		catalogCache:   catalogCache,
		briefingLogger: logger.With().Str("service", "BriefingService").Logger(),
	}
}

func (s *briefingService) GetBriefingWithAccess(ctx context.Context, id string, req access.Requester) (*BriefingAccess, error) {
	briefing, err := s.repo.GetBriefingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, briefing, req), nil
}

func (s *briefingService) ListTodaysBriefings(ctx context.Context, req access.Requester) ([]BriefingAccess, error) {
	briefings, err := s.todaysBriefings(ctx)
	if err != nil {
		return nil, err
	}
	return s.decideAll(ctx, briefings, req), nil
}

func (s *briefingService) ListFreeBriefings(ctx context.Context, limit int, req access.Requester) ([]BriefingAccess, error) {
	if limit <= 0 {
		limit = 10
	}
	briefings, err := s.repo.ListFreeBriefings(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.decideAll(ctx, briefings, req), nil
}

func (s *briefingService) ListBriefings(ctx context.Context, filter repository.ListBriefingsFilter, req access.Requester) ([]BriefingAccess, error) {
	briefings, err := s.repo.ListBriefings(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.decideAll(ctx, briefings, req), nil
}

func (s *briefingService) ListAccessibleBriefings(ctx context.Context, req access.Requester) ([]BriefingAccess, error) {
	briefings, err := s.todaysBriefings(ctx)
	if err != nil {
		return nil, err
	}
	all := s.decideAll(ctx, briefings, req)
	accessible := make([]BriefingAccess, 0, len(all))
	for _, ba := range all {
		if ba.CanAccess {
			accessible = append(accessible, ba)
		}
	}
	return accessible, nil
}

// todaysBriefings reads the shared feed through the cache. Cache errors
// degrade to a repository read; they never fail the request.
func (s *briefingService) todaysBriefings(ctx context.Context) ([]model.Briefing, error) {
	today := util.BriefingDate(time.Now())
	if s.catalogCache == nil {
		return s.repo.ListTodaysBriefings(ctx, today)
	}

	key := "briefings:today:" + today.Format("2006-01-02")
	if raw, err := s.catalogCache.Get(ctx, key); err == nil {
		var cached []model.Briefing
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		s.briefingLogger.Warn().Str("key", key).Msg("Discarding undecodable cache entry")
	} else if !errors.Is(err, cache.ErrMiss) {
		s.briefingLogger.Warn().Err(err).Msg("Cache read failed, falling back to database")
	}

	briefings, err := s.repo.ListTodaysBriefings(ctx, today)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(briefings); err == nil {
		if err := s.catalogCache.Set(ctx, key, raw, todaysBriefingsTTL); err != nil {
			s.briefingLogger.Warn().Err(err).Msg("Cache write failed")
		}
	}
	return briefings, nil
}

func (s *briefingService) decideAll(ctx context.Context, briefings []model.Briefing, req access.Requester) []BriefingAccess {
	out := make([]BriefingAccess, 0, len(briefings))
	for i := range briefings {
		out = append(out, *s.decide(ctx, &briefings[i], req))
	}
	return out
}

// decide evaluates entitlement and enforces it on the payload. Denied
// responses carry the briefing's descriptive fields for upgrade prompts but
// never its text or file paths.
func (s *briefingService) decide(ctx context.Context, briefing *model.Briefing, req access.Requester) *BriefingAccess {
	decision := s.evaluator.Evaluate(access.Content{Tier: briefing.Tier, IsPublic: briefing.IsPublic}, req)

	outcome := "grant"
	if !decision.Granted {
		outcome = "deny"
	}
	metrics.AccessDecisionsTotal.WithLabelValues(outcome, decision.Reason).Inc()

	result := &BriefingAccess{
		Briefing:     briefing,
		CanAccess:    decision.Granted,
		AccessReason: decision.Reason,
	}
	if !decision.Granted {
		stripped := *briefing
		stripped.TextContent = ""
		stripped.AudioFilePath = ""
		stripped.TextFilePath = ""
		result.Briefing = &stripped
		return result
	}

	if briefing.AudioFilePath != "" && s.audioStore != nil {
		url, err := s.audioStore.PresignedURL(ctx, briefing.AudioFilePath, briefing.Tier)
		if err != nil {
			s.briefingLogger.Warn().Err(err).Str("briefing_id", briefing.ID).Msg("Failed to sign audio URL")
		} else {
			result.AudioURL = url
		}
	}
	return result
}
