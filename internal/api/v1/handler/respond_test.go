package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketmotion/internal/middleware"
	"marketmotion/internal/model"
	"marketmotion/internal/repository"
)

type fakeUserService struct {
	profile *model.UserProfile
	err     error
}

func (f *fakeUserService) SyncProfile(ctx context.Context, userID, email string) (*model.UserProfile, error) {
	return f.profile, f.err
}

func (f *fakeUserService) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeUserService) UpdateSubscription(ctx context.Context, userID, tier string, expiresAt *time.Time) (*model.UserProfile, error) {
	return f.profile, f.err
}

func authedCtx(userID string) context.Context {
	return context.WithValue(context.Background(), middleware.UserContextKey, userID)
}

func TestRequesterFromAnonymous(t *testing.T) {
	req, err := requesterFrom(context.Background(), &fakeUserService{})
	if err != nil {
		t.Fatalf("anonymous requester returned error: %v", err)
	}
	if req.Authenticated || req.Profile != nil {
		t.Fatal("anonymous caller must be unauthenticated with no profile")
	}
}

func TestRequesterFromMissingProfileIsFreeEquivalent(t *testing.T) {
	svc := &fakeUserService{err: repository.ErrNotFound}
	req, err := requesterFrom(authedCtx("user-1"), svc)
	if err != nil {
		t.Fatalf("missing profile must not be an error, got %v", err)
	}
	if !req.Authenticated {
		t.Fatal("caller is authenticated even without a synced profile")
	}
	if req.Profile != nil {
		t.Fatal("missing profile must yield a nil profile, not a fabricated one")
	}
}

func TestRequesterFromLookupFailureSurfaces(t *testing.T) {
	wantErr := errors.New("connection refused")
	svc := &fakeUserService{err: wantErr}
	_, err := requesterFrom(authedCtx("user-1"), svc)
	if !errors.Is(err, wantErr) {
		t.Fatalf("transient lookup failure must surface, got %v", err)
	}
}

func TestRequesterFromAttachesProfile(t *testing.T) {
	profile := &model.UserProfile{ID: "user-1", IsPaidSubscriber: true, SubscriptionTier: model.SubscriptionTierPremium}
	req, err := requesterFrom(authedCtx("user-1"), &fakeUserService{profile: profile})
	if err != nil {
		t.Fatalf("requesterFrom returned error: %v", err)
	}
	if req.Profile != profile {
		t.Fatal("expected the fetched profile on the requester")
	}
}
