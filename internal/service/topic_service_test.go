package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketmotion/internal/model"
	"marketmotion/internal/repository"
	"marketmotion/internal/util"

	"github.com/rs/zerolog"
)

func TestSeedTopicRejectsUnknownCategory(t *testing.T) {
	svc := NewTopicService(&fakeTopicRepo{}, fixedEvaluator(), &fakeAudioStore{}, zerolog.Nop())

	err := svc.SeedTopic(context.Background(), &model.Topic{Name: "crypto", Category: "cryptocurrency"})
	if !errors.Is(err, ErrInvalidTopicCategory) {
		t.Fatalf("expected ErrInvalidTopicCategory, got %v", err)
	}

	if err := svc.SeedTopic(context.Background(), &model.Topic{Name: "crypto", Category: model.TopicCategoryFinancial}); err != nil {
		t.Fatalf("valid category should seed, got %v", err)
	}
}

func TestSubscribeReactivates(t *testing.T) {
	repo := &fakeTopicRepo{topics: map[string]*model.Topic{
		"rates": {ID: "topic-1", Name: "rates", DisplayName: "Interest Rates", Category: model.TopicCategoryFinancial},
	}}
	svc := NewTopicService(repo, fixedEvaluator(), &fakeAudioStore{}, zerolog.Nop())

	sub, err := svc.Subscribe(context.Background(), "user-1", "rates")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sub.IsActive {
		t.Error("a new subscription must be active")
	}
	if sub.Topic == nil || sub.Topic.Name != "rates" {
		t.Error("subscription should carry the joined topic")
	}
	if len(repo.subscriptions) != 1 {
		t.Fatalf("expected one upsert, got %d", len(repo.subscriptions))
	}
}

func TestSubscribeUnknownTopic(t *testing.T) {
	svc := NewTopicService(&fakeTopicRepo{}, fixedEvaluator(), &fakeAudioStore{}, zerolog.Nop())
	_, err := svc.Subscribe(context.Background(), "user-1", "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetTodaysTopicBriefingRequiresSubscription(t *testing.T) {
	repo := &fakeTopicRepo{
		topics: map[string]*model.Topic{
			"rates": {ID: "topic-1", Name: "rates", DisplayName: "Interest Rates", Category: model.TopicCategoryFinancial},
		},
		noSubscription: true,
	}
	svc := NewTopicService(repo, fixedEvaluator(), &fakeAudioStore{}, zerolog.Nop())

	_, err := svc.GetTodaysTopicBriefing(context.Background(), "user-1", "rates", paidRequester())
	if !errors.Is(err, ErrNotSubscribed) {
		t.Fatalf("expected ErrNotSubscribed, got %v", err)
	}
}

func TestGetTodaysTopicBriefingDeniedForFreeTier(t *testing.T) {
	today := timeToday()
	repo := &fakeTopicRepo{
		topics: map[string]*model.Topic{
			"rates": {ID: "topic-1", Name: "rates", DisplayName: "Interest Rates", Category: model.TopicCategoryFinancial},
		},
		briefings: map[string]*model.TopicBriefing{
			topicBriefingKey("topic-1", today): {
				ID:            "tb-1",
				TopicID:       "topic-1",
				BriefingDate:  today,
				TextContent:   "script",
				AudioFilePath: "path.mp3",
				Blurb:         "teaser",
			},
		},
	}
	svc := NewTopicService(repo, fixedEvaluator(), &fakeAudioStore{}, zerolog.Nop())

	got, err := svc.GetTodaysTopicBriefing(context.Background(), "user-1", "rates", freeRequester())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CanAccess {
		t.Fatal("topic briefings are premium content, free tier must be denied")
	}
	if got.Briefing.TextContent != "" || got.Briefing.AudioFilePath != "" {
		t.Error("denied response must carry no content")
	}
	if got.Briefing.Blurb == "" {
		t.Error("the blurb stays visible as a teaser")
	}
}

func TestGetTodaysTopicBriefingGranted(t *testing.T) {
	today := timeToday()
	repo := &fakeTopicRepo{
		topics: map[string]*model.Topic{
			"rates": {ID: "topic-1", Name: "rates", DisplayName: "Interest Rates", Category: model.TopicCategoryFinancial},
		},
		briefings: map[string]*model.TopicBriefing{
			topicBriefingKey("topic-1", today): {
				ID: "tb-1", TopicID: "topic-1", BriefingDate: today,
				TextContent: "script", AudioFilePath: "path.mp3",
			},
		},
	}
	svc := NewTopicService(repo, fixedEvaluator(), &fakeAudioStore{}, zerolog.Nop())

	got, err := svc.GetTodaysTopicBriefing(context.Background(), "user-1", "rates", paidRequester())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.CanAccess {
		t.Fatalf("paid subscriber should be granted, denied with %q", got.AccessReason)
	}
	if got.AudioURL == "" {
		t.Error("granted response should carry a signed audio URL")
	}
}

func timeToday() time.Time {
	return util.BriefingDate(time.Now())
}
