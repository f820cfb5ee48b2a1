package service

import (
	"context"
	"time"

	"marketmotion/internal/access"
	"marketmotion/internal/model"
	"marketmotion/internal/repository"
	"marketmotion/internal/util"

	"github.com/rs/zerolog"
)

// TopicBriefingAccess pairs a topic briefing with the requester's entitlement
// decision. Topic briefings are always premium content.
type TopicBriefingAccess struct {
	Briefing     *model.TopicBriefing
	CanAccess    bool
	AccessReason string
	AudioURL     string
}

// TopicService manages the topic taxonomy, subscriptions and the topic
// briefing read path.
type TopicService interface {
	ListTopics(ctx context.Context) ([]model.Topic, error)
	GetTopic(ctx context.Context, name string) (*model.Topic, error)
	// SeedTopic idempotently creates or refreshes a taxonomy entry. The
	// category must come from the closed set.
	SeedTopic(ctx context.Context, t *model.Topic) error

	Subscribe(ctx context.Context, userID, topicName string) (*model.TopicSubscription, error)
	Unsubscribe(ctx context.Context, userID, topicName string) error
	ListUserTopics(ctx context.Context, userID string) ([]model.TopicSubscription, error)

	// GetTodaysTopicBriefing returns today's briefing for a topic the user
	// actively follows. Following is a prerequisite, entitlement is evaluated
	// on top as premium content.
	GetTodaysTopicBriefing(ctx context.Context, userID, topicName string, req access.Requester) (*TopicBriefingAccess, error)
}

type topicService struct {
	repo        repository.TopicRepository
	evaluator   *access.Evaluator
	audioStore  AudioStore
	topicLogger zerolog.Logger
}

// NewTopicService creates a new TopicService.
func NewTopicService(
	repo repository.TopicRepository,
	evaluator *access.Evaluator,
	audioStore AudioStore,
	logger zerolog.Logger,
) TopicService {
	return &topicService{
		repo:        repo,
		evaluator:   evaluator,
		audioStore:  audioStore,
		topicLogger: logger.With().Str("service", "TopicService").Logger(),
	}
}

func (s *topicService) ListTopics(ctx context.Context) ([]model.Topic, error) {
	return s.repo.ListActiveTopics(ctx)
}

func (s *topicService) GetTopic(ctx context.Context, name string) (*model.Topic, error) {
	return s.repo.GetTopicByName(ctx, name)
}

func (s *topicService) SeedTopic(ctx context.Context, t *model.Topic) error {
	if !model.ValidTopicCategory(t.Category) {
		return ErrInvalidTopicCategory
	}
	if err := s.repo.UpsertTopic(ctx, t); err != nil {
		s.topicLogger.Error().Err(err).Str("topic", t.Name).Msg("Failed to seed topic")
		return err
	}
	return nil
}

func (s *topicService) Subscribe(ctx context.Context, userID, topicName string) (*model.TopicSubscription, error) {
	topic, err := s.repo.GetTopicByName(ctx, topicName)
	if err != nil {
		return nil, err
	}
	sub := &model.TopicSubscription{
		UserID:              userID,
		TopicID:             topic.ID,
		IsActive:            true,
		NotificationEnabled: true,
		Priority:            1,
	}
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		s.topicLogger.Error().Err(err).Str("topic", topicName).Str("user_id", userID).Msg("Failed to subscribe")
		return nil, err
	}
	sub.Topic = topic
	return sub, nil
}

func (s *topicService) Unsubscribe(ctx context.Context, userID, topicName string) error {
	topic, err := s.repo.GetTopicByName(ctx, topicName)
	if err != nil {
		return err
	}
	return s.repo.DeactivateSubscription(ctx, userID, topic.ID)
}

func (s *topicService) ListUserTopics(ctx context.Context, userID string) ([]model.TopicSubscription, error) {
	return s.repo.ListUserSubscriptions(ctx, userID)
}

func (s *topicService) GetTodaysTopicBriefing(ctx context.Context, userID, topicName string, req access.Requester) (*TopicBriefingAccess, error) {
	topic, err := s.repo.GetTopicByName(ctx, topicName)
	if err != nil {
		return nil, err
	}

	subscribed, err := s.repo.HasActiveSubscription(ctx, userID, topic.ID)
	if err != nil {
		return nil, err
	}
	if !subscribed {
		return nil, ErrNotSubscribed
	}

	briefing, err := s.repo.GetTopicBriefing(ctx, topic.ID, util.BriefingDate(time.Now()))
	if err != nil {
		return nil, err
	}

	decision := s.evaluator.Evaluate(access.Content{Tier: model.TierPremium}, req)
	result := &TopicBriefingAccess{
		Briefing:     briefing,
		CanAccess:    decision.Granted,
		AccessReason: decision.Reason,
	}
	if !decision.Granted {
		stripped := *briefing
		stripped.TextContent = ""
		stripped.AudioFilePath = ""
		result.Briefing = &stripped
		return result, nil
	}

	if briefing.AudioFilePath != "" && s.audioStore != nil {
		url, err := s.audioStore.PresignedURL(ctx, briefing.AudioFilePath, model.TierPremium)
		if err != nil {
			s.topicLogger.Warn().Err(err).Str("topic", topicName).Msg("Failed to sign audio URL")
		} else {
			result.AudioURL = url
		}
	}
	return result, nil
}
