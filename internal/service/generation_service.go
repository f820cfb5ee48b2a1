package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketmotion/internal/metrics"
	"marketmotion/internal/model"
	"marketmotion/internal/pubsub"
	"marketmotion/internal/repository"

	"github.com/rs/zerolog"
)

// Target narration lengths per tier. Free briefings are deliberately shorter.
const (
	freeTargetMinutes    = 5
	premiumTargetMinutes = 10
	topicTargetMinutes   = 7
	maxArticlesPerRun    = 20
)

// Metric label values for the two generation kinds.
const (
	kindSlot  = "slot"
	kindTopic = "topic"
)

// SlotBriefingParams describes one scheduled slot generation job.
type SlotBriefingParams struct {
	Date         time.Time
	BriefingType string
	// Force skips the ledger check. The scheduler sets it when it deliberately
	// regenerates a slot with fresher news.
	Force bool
}

// TopicBriefingParams describes one topic generation job. UserID is set when a
// subscriber triggered the run and empty for scheduled runs.
type TopicBriefingParams struct {
	TopicName string
	UserID    string
	Date      time.Time
	Force     bool
}

// GenerationService runs the briefing pipeline: fetch news, write a script,
// synthesize audio, store artifacts, upsert the catalog row and announce the
// result. A collaborator failure aborts the run before anything is written,
// so the slot stays open for retry.
type GenerationService interface {
	GenerateSlotBriefing(ctx context.Context, params SlotBriefingParams) (*model.Briefing, error)
	GenerateTopicBriefing(ctx context.Context, params TopicBriefingParams) (*model.TopicBriefing, error)
}

type generationService struct {
	briefingRepo repository.BriefingRepository
	topicRepo    repository.TopicRepository
	quota        QuotaService
	news         NewsClient
	summarizer   Summarizer
	speech       SpeechClient
	audioStore   AudioStore
	publisher    pubsub.Publisher
	eventsTopic  string
	genLogger    zerolog.Logger
}

// NewGenerationService creates a new GenerationService.
func NewGenerationService(
	briefingRepo repository.BriefingRepository,
	topicRepo repository.TopicRepository,
	quota QuotaService,
	news NewsClient,
	summarizer Summarizer,
	speech SpeechClient,
	audioStore AudioStore,
	publisher pubsub.Publisher,
	eventsTopic string,
	logger zerolog.Logger,
) GenerationService {
	return &generationService{
		briefingRepo: briefingRepo,
		topicRepo:    topicRepo,
		quota:        quota,
		news:         news,
		summarizer:   summarizer,
		speech:       speech,
		audioStore:   audioStore,
		publisher:    publisher,
		eventsTopic:  eventsTopic,
		genLogger:    logger.With().Str("service", "GenerationService").Logger(),
	}
}

func (s *generationService) GenerateSlotBriefing(ctx context.Context, params SlotBriefingParams) (*model.Briefing, error) {
	metrics.GenerationAttemptsTotal.WithLabelValues(kindSlot).Inc()

	tier := model.TierPremium
	targetMinutes := premiumTargetMinutes
	if model.IsFreeSlotType(params.BriefingType) {
		tier = model.TierFree
		targetMinutes = freeTargetMinutes
	}

	if !params.Force {
		if err := s.quota.CheckSlotAvailable(ctx, params.Date, params.BriefingType, tier); err != nil {
			if errors.Is(err, ErrDailyLimitReached) {
				metrics.QuotaRejectionsTotal.WithLabelValues(kindSlot).Inc()
			}
			return nil, err
		}
	}

	artifacts, err := s.runPipeline(ctx, kindSlot, pipelineInput{
		subject:       slotSubject(params.BriefingType),
		query:         slotNewsQuery(params.BriefingType),
		date:          params.Date,
		briefingType:  params.BriefingType,
		targetMinutes: targetMinutes,
	})
	if err != nil {
		return nil, err
	}

	briefing := &model.Briefing{
		Title:           fmt.Sprintf("%s, %s", slotSubject(params.BriefingType), params.Date.Format("January 2, 2006")),
		BriefingType:    params.BriefingType,
		BriefingDate:    params.Date,
		Tier:            tier,
		IsPublic:        false,
		TextContent:     artifacts.script.Text,
		AudioFilePath:   artifacts.audioPath,
		TextFilePath:    artifacts.textPath,
		WordCount:       artifacts.script.WordCount,
		DurationSeconds: artifacts.durationSeconds,
		Metadata: map[string]interface{}{
			"article_count": artifacts.articleCount,
		},
	}
	if err := s.briefingRepo.UpsertBriefing(ctx, briefing); err != nil {
		metrics.GenerationFailuresTotal.WithLabelValues(kindSlot, "upsert").Inc()
		return nil, err
	}

	s.announce(ctx, pubsub.KindBriefingGenerated, map[string]interface{}{
		"briefing_id":   briefing.ID,
		"briefing_date": briefing.BriefingDate.Format("2006-01-02"),
		"briefing_type": briefing.BriefingType,
		"tier":          briefing.Tier,
	})

	s.genLogger.Info().
		Str("briefing_id", briefing.ID).
		Str("briefing_type", briefing.BriefingType).
		Int("word_count", briefing.WordCount).
		Msg("Slot briefing generated")
	return briefing, nil
}

func (s *generationService) GenerateTopicBriefing(ctx context.Context, params TopicBriefingParams) (*model.TopicBriefing, error) {
	metrics.GenerationAttemptsTotal.WithLabelValues(kindTopic).Inc()

	topic, err := s.topicRepo.GetTopicByName(ctx, params.TopicName)
	if err != nil {
		return nil, err
	}

	if !params.Force {
		if err := s.checkTopicBudget(ctx, topic.ID, params); err != nil {
			if errors.Is(err, ErrDailyLimitReached) {
				metrics.QuotaRejectionsTotal.WithLabelValues(kindTopic).Inc()
			}
			return nil, err
		}
	}

	artifacts, err := s.runPipeline(ctx, kindTopic, pipelineInput{
		subject:       topic.DisplayName,
		query:         topicNewsQuery(topic),
		date:          params.Date,
		briefingType:  "topic_" + topic.Name,
		targetMinutes: topicTargetMinutes,
	})
	if err != nil {
		return nil, err
	}

	briefing := &model.TopicBriefing{
		TopicID:       topic.ID,
		Title:         fmt.Sprintf("%s Briefing, %s", topic.DisplayName, params.Date.Format("January 2, 2006")),
		BriefingDate:  params.Date,
		TextContent:   artifacts.script.Text,
		AudioFilePath: artifacts.audioPath,
		Blurb:         blurb(artifacts.script.Text),
		Metadata: map[string]interface{}{
			"article_count":    artifacts.articleCount,
			"word_count":       artifacts.script.WordCount,
			"duration_seconds": artifacts.durationSeconds,
		},
	}
	if err := s.topicRepo.UpsertTopicBriefing(ctx, briefing); err != nil {
		metrics.GenerationFailuresTotal.WithLabelValues(kindTopic, "upsert").Inc()
		return nil, err
	}

	s.announce(ctx, pubsub.KindTopicBriefingGenerated, map[string]interface{}{
		"topic_briefing_id": briefing.ID,
		"topic":             topic.Name,
		"briefing_date":     briefing.BriefingDate.Format("2006-01-02"),
	})

	s.genLogger.Info().
		Str("topic", topic.Name).
		Str("topic_briefing_id", briefing.ID).
		Msg("Topic briefing generated")
	return briefing, nil
}

// checkTopicBudget enforces the one-per-day topic rule. User-triggered runs go
// through the per-user ledger; scheduled runs just check whether today's
// briefing already exists.
func (s *generationService) checkTopicBudget(ctx context.Context, topicID string, params TopicBriefingParams) error {
	if params.UserID != "" {
		return s.quota.CheckTopicQuota(ctx, params.UserID, topicID, params.Date)
	}
	_, err := s.topicRepo.GetTopicBriefing(ctx, topicID, params.Date)
	if err == nil {
		return ErrDailyLimitReached
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

type pipelineInput struct {
	subject       string
	query         string
	date          time.Time
	briefingType  string
	targetMinutes int
}

type pipelineArtifacts struct {
	script          *Script
	audioPath       string
	textPath        string
	durationSeconds int
	articleCount    int
}

// runPipeline executes the content stages. Any failure maps to
// ErrUpstreamUnavailable so callers can distinguish retryable provider
// trouble from ledger and storage errors.
func (s *generationService) runPipeline(ctx context.Context, kind string, in pipelineInput) (*pipelineArtifacts, error) {
	var articles []Article
	err := s.timed(kind, "fetch", func() error {
		var err error
		articles, err = s.news.FetchArticles(ctx, in.query, in.date.AddDate(0, 0, -1), in.date, maxArticlesPerRun)
		if err == nil && len(articles) == 0 {
			err = fmt.Errorf("no articles found for %q", in.query)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %v", ErrUpstreamUnavailable, err)
	}

	var script *Script
	err = s.timed(kind, "summarize", func() error {
		var err error
		script, err = s.summarizer.Summarize(ctx, SummaryRequest{
			Subject:       in.subject,
			Articles:      articles,
			TargetMinutes: in.targetMinutes,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: summarize: %v", ErrUpstreamUnavailable, err)
	}

	var speech *SpeechResult
	err = s.timed(kind, "synthesize", func() error {
		var err error
		speech, err = s.speech.Synthesize(ctx, script.Text)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: synthesize: %v", ErrUpstreamUnavailable, err)
	}

	var audioPath, textPath string
	err = s.timed(kind, "upload", func() error {
		var err error
		audioPath, err = s.audioStore.Upload(ctx, in.date, in.briefingType, speech.Audio)
		if err != nil {
			return err
		}
		textPath, err = s.audioStore.UploadText(ctx, in.date, in.briefingType, script.Text)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: upload: %v", ErrUpstreamUnavailable, err)
	}

	return &pipelineArtifacts{
		script:          script,
		audioPath:       audioPath,
		textPath:        textPath,
		durationSeconds: speech.DurationSeconds,
		articleCount:    len(articles),
	}, nil
}

func (s *generationService) timed(kind, stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.GenerationStageSeconds.WithLabelValues(kind, stage).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationFailuresTotal.WithLabelValues(kind, stage).Inc()
	}
	return err
}

// announce publishes a catalog event. Publishing is best-effort: the briefing
// is already committed, so a broker outage only costs downstream fan-out.
func (s *generationService) announce(ctx context.Context, kind string, payload map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.genLogger.Error().Err(err).Str("kind", kind).Msg("Failed to marshal event payload")
		return
	}
	if _, err := s.publisher.Publish(ctx, s.eventsTopic, kind, data); err != nil {
		s.genLogger.Error().Err(err).Str("kind", kind).Msg("Failed to publish catalog event")
	}
}

func slotSubject(briefingType string) string {
	base := strings.TrimPrefix(briefingType, "free_")
	switch base {
	case model.BriefingTypeMorning:
		return "Morning Market Briefing"
	case model.BriefingTypeMidday:
		return "Midday Market Briefing"
	case model.BriefingTypeEvening:
		return "Evening Market Wrap"
	default:
		return "Market Briefing"
	}
}

func slotNewsQuery(briefingType string) string {
	base := strings.TrimPrefix(briefingType, "free_")
	switch base {
	case model.BriefingTypeMorning:
		return "stock market premarket futures earnings"
	case model.BriefingTypeMidday:
		return "stock market midday trading sector moves"
	case model.BriefingTypeEvening:
		return "stock market close earnings after hours"
	default:
		return "stock market finance economy"
	}
}

func topicNewsQuery(t *model.Topic) string {
	if t.Category == model.TopicCategoryGeneral {
		return t.DisplayName
	}
	return t.DisplayName + " " + t.Category
}

// blurb extracts a short teaser from the script for list views.
func blurb(text string) string {
	const maxLen = 200
	if idx := strings.Index(text, ". "); idx > 0 && idx < maxLen {
		return text[:idx+1]
	}
	if len(text) > maxLen {
		return text[:maxLen]
	}
	return text
}
