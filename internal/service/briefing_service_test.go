package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketmotion/internal/access"
	"marketmotion/internal/model"
	"marketmotion/internal/repository"

	"github.com/rs/zerolog"
)

type fakeBriefingRepo struct {
	byID      map[string]*model.Briefing
	todays    []model.Briefing
	listCalls int
}

func (f *fakeBriefingRepo) UpsertBriefing(_ context.Context, _ *model.Briefing) error {
	return errors.New("not implemented")
}

func (f *fakeBriefingRepo) GetBriefingByID(_ context.Context, id string) (*model.Briefing, error) {
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBriefingRepo) ListTodaysBriefings(_ context.Context, _ time.Time) ([]model.Briefing, error) {
	f.listCalls++
	return append([]model.Briefing(nil), f.todays...), nil
}

func (f *fakeBriefingRepo) ListFreeBriefings(_ context.Context, _ int) ([]model.Briefing, error) {
	var out []model.Briefing
	for _, b := range f.todays {
		if b.Tier == model.TierFree {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBriefingRepo) ListBriefings(_ context.Context, _ repository.ListBriefingsFilter) ([]model.Briefing, error) {
	return append([]model.Briefing(nil), f.todays...), nil
}

type fakeAudioStore struct {
	uploads   int
	signedFor []string
	signErr   error
}

func (f *fakeAudioStore) Upload(_ context.Context, _ time.Time, _ string, _ []byte) (string, error) {
	f.uploads++
	return "2026/08/29/morning/audio.mp3", nil
}

func (f *fakeAudioStore) UploadText(_ context.Context, _ time.Time, _, _ string) (string, error) {
	return "2026/08/29/morning/script.txt", nil
}

func (f *fakeAudioStore) PresignedURL(_ context.Context, storagePath, _ string) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	f.signedFor = append(f.signedFor, storagePath)
	return "https://cdn.example.com/" + storagePath + "?sig=abc", nil
}

func fixedEvaluator() *access.Evaluator {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	return access.NewEvaluator(func() time.Time { return now })
}

func paidRequester() access.Requester {
	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	return access.Requester{
		Authenticated: true,
		Profile: &model.UserProfile{
			ID:                    "user-paid",
			IsPaidSubscriber:      true,
			SubscriptionTier:      model.SubscriptionTierPremium,
			SubscriptionExpiresAt: &expiry,
		},
	}
}

func freeRequester() access.Requester {
	return access.Requester{
		Authenticated: true,
		Profile:       &model.UserProfile{ID: "user-free", SubscriptionTier: model.SubscriptionTierFree},
	}
}

func TestGetBriefingWithAccessDeniedStripsContent(t *testing.T) {
	repo := &fakeBriefingRepo{byID: map[string]*model.Briefing{
		"b1": {
			ID:            "b1",
			Title:         "Morning Market Briefing",
			Tier:          model.TierPremium,
			TextContent:   "the full script",
			AudioFilePath: "2026/08/29/morning/audio.mp3",
			TextFilePath:  "2026/08/29/morning/script.txt",
			WordCount:     1500,
		},
	}}
	store := &fakeAudioStore{}
	svc := NewBriefingService(repo, fixedEvaluator(), store, nil, zerolog.Nop())

	got, err := svc.GetBriefingWithAccess(context.Background(), "b1", freeRequester())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CanAccess {
		t.Fatal("free user must not access premium content")
	}
	if got.AccessReason != access.ReasonPremiumRequired {
		t.Errorf("got reason %q, want %q", got.AccessReason, access.ReasonPremiumRequired)
	}
	if got.Briefing.TextContent != "" || got.Briefing.AudioFilePath != "" || got.Briefing.TextFilePath != "" {
		t.Error("denied response must carry no content fields")
	}
	if got.Briefing.Title != "Morning Market Briefing" {
		t.Error("denied response should keep descriptive fields for upgrade prompts")
	}
	if got.AudioURL != "" {
		t.Error("denied response must not include a signed URL")
	}
	if len(store.signedFor) != 0 {
		t.Error("no URL should be signed for a denied request")
	}
}

func TestGetBriefingWithAccessGrantSignsURL(t *testing.T) {
	repo := &fakeBriefingRepo{byID: map[string]*model.Briefing{
		"b1": {
			ID:            "b1",
			Tier:          model.TierPremium,
			TextContent:   "the full script",
			AudioFilePath: "2026/08/29/morning/audio.mp3",
		},
	}}
	store := &fakeAudioStore{}
	svc := NewBriefingService(repo, fixedEvaluator(), store, nil, zerolog.Nop())

	got, err := svc.GetBriefingWithAccess(context.Background(), "b1", paidRequester())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.CanAccess {
		t.Fatalf("paid user should access premium content, denied with %q", got.AccessReason)
	}
	if got.Briefing.TextContent != "the full script" {
		t.Error("granted response must keep text content")
	}
	if got.AudioURL == "" {
		t.Error("granted response should carry a signed audio URL")
	}
}

func TestGetBriefingWithAccessPublicUnauthenticated(t *testing.T) {
	repo := &fakeBriefingRepo{byID: map[string]*model.Briefing{
		"b1": {ID: "b1", Tier: model.TierPremium, IsPublic: true, TextContent: "promo"},
	}}
	svc := NewBriefingService(repo, fixedEvaluator(), &fakeAudioStore{}, nil, zerolog.Nop())

	got, err := svc.GetBriefingWithAccess(context.Background(), "b1", access.Requester{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.CanAccess || got.AccessReason != access.ReasonPublicBriefing {
		t.Fatalf("public content should be open to anonymous callers, got %+v", got)
	}
}

func TestGetBriefingWithAccessNotFound(t *testing.T) {
	svc := NewBriefingService(&fakeBriefingRepo{}, fixedEvaluator(), &fakeAudioStore{}, nil, zerolog.Nop())
	_, err := svc.GetBriefingWithAccess(context.Background(), "missing", freeRequester())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSignFailureDoesNotFailRead(t *testing.T) {
	repo := &fakeBriefingRepo{byID: map[string]*model.Briefing{
		"b1": {ID: "b1", Tier: model.TierFree, TextContent: "script", AudioFilePath: "path.mp3"},
	}}
	store := &fakeAudioStore{signErr: errors.New("presign failed")}
	svc := NewBriefingService(repo, fixedEvaluator(), store, nil, zerolog.Nop())

	got, err := svc.GetBriefingWithAccess(context.Background(), "b1", freeRequester())
	if err != nil {
		t.Fatalf("signing trouble must not fail the read: %v", err)
	}
	if !got.CanAccess || got.AudioURL != "" {
		t.Fatalf("expected grant without URL, got %+v", got)
	}
}

func TestListAccessibleBriefingsFiltersDenied(t *testing.T) {
	repo := &fakeBriefingRepo{todays: []model.Briefing{
		{ID: "free1", Tier: model.TierFree, BriefingType: model.BriefingTypeFreeMorning, TextContent: "a"},
		{ID: "prem1", Tier: model.TierPremium, BriefingType: model.BriefingTypeMorning, TextContent: "b"},
	}}
	svc := NewBriefingService(repo, fixedEvaluator(), &fakeAudioStore{}, nil, zerolog.Nop())

	got, err := svc.ListAccessibleBriefings(context.Background(), freeRequester())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Briefing.ID != "free1" {
		t.Fatalf("expected only the free briefing, got %d entries", len(got))
	}
}

func TestListTodaysBriefingsAnnotatesAll(t *testing.T) {
	repo := &fakeBriefingRepo{todays: []model.Briefing{
		{ID: "free1", Tier: model.TierFree, TextContent: "a"},
		{ID: "prem1", Tier: model.TierPremium, TextContent: "b"},
	}}
	svc := NewBriefingService(repo, fixedEvaluator(), &fakeAudioStore{}, nil, zerolog.Nop())

	got, err := svc.ListTodaysBriefings(context.Background(), freeRequester())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("listing keeps denied entries, got %d", len(got))
	}
	for _, ba := range got {
		switch ba.Briefing.ID {
		case "free1":
			if !ba.CanAccess || ba.Briefing.TextContent != "a" {
				t.Error("free entry should be granted with content")
			}
		case "prem1":
			if ba.CanAccess || ba.Briefing.TextContent != "" {
				t.Error("premium entry should be denied and stripped")
			}
		}
	}
}
