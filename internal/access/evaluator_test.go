package access

import (
	"testing"
	"time"

	"marketmotion/internal/model"
)

var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func paidProfile(expires *time.Time) *model.UserProfile {
	return &model.UserProfile{
		ID:                    "user-1",
		Email:                 "paid@example.com",
		IsPaidSubscriber:      true,
		SubscriptionTier:      model.SubscriptionTierPremium,
		SubscriptionExpiresAt: expires,
	}
}

func freeProfile() *model.UserProfile {
	return &model.UserProfile{
		ID:               "user-2",
		Email:            "free@example.com",
		SubscriptionTier: model.SubscriptionTierFree,
	}
}

func TestEvaluate(t *testing.T) {
	yesterday := testNow.Add(-24 * time.Hour)
	nextMonth := testNow.Add(30 * 24 * time.Hour)

	cases := []struct {
		name        string
		content     Content
		requester   Requester
		wantGranted bool
		wantReason  string
	}{
		{
			name:        "free content unauthenticated is denied",
			content:     Content{Tier: model.TierFree},
			requester:   Requester{},
			wantGranted: false,
			wantReason:  ReasonAuthRequired,
		},
		{
			name:        "free content authenticated is granted",
			content:     Content{Tier: model.TierFree},
			requester:   Requester{Authenticated: true, Profile: freeProfile()},
			wantGranted: true,
			wantReason:  ReasonFreeTier,
		},
		{
			name:        "public premium content granted without payment",
			content:     Content{Tier: model.TierPremium, IsPublic: true},
			requester:   Requester{Authenticated: true, Profile: freeProfile()},
			wantGranted: true,
			wantReason:  ReasonPublicBriefing,
		},
		{
			name:        "public premium content granted unauthenticated",
			content:     Content{Tier: model.TierPremium, IsPublic: true},
			requester:   Requester{},
			wantGranted: true,
			wantReason:  ReasonPublicBriefing,
		},
		{
			name:        "expired paid subscriber is denied premium",
			content:     Content{Tier: model.TierPremium},
			requester:   Requester{Authenticated: true, Profile: paidProfile(&yesterday)},
			wantGranted: false,
			wantReason:  ReasonPremiumRequired,
		},
		{
			name:        "active paid subscriber is granted premium",
			content:     Content{Tier: model.TierPremium},
			requester:   Requester{Authenticated: true, Profile: paidProfile(&nextMonth)},
			wantGranted: true,
			wantReason:  ReasonPremiumSubscriber,
		},
		{
			name:        "paid with nil expiry never expires",
			content:     Content{Tier: model.TierPremium},
			requester:   Requester{Authenticated: true, Profile: paidProfile(nil)},
			wantGranted: true,
			wantReason:  ReasonPremiumSubscriber,
		},
		{
			name:        "unpaid subscriber denied premium",
			content:     Content{Tier: model.TierPremium},
			requester:   Requester{Authenticated: true, Profile: freeProfile()},
			wantGranted: false,
			wantReason:  ReasonPremiumRequired,
		},
		{
			name:        "free rule wins over public flag",
			content:     Content{Tier: model.TierFree, IsPublic: true},
			requester:   Requester{Authenticated: true, Profile: freeProfile()},
			wantGranted: true,
			wantReason:  ReasonFreeTier,
		},
	}

	e := NewEvaluator(fixedClock)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := e.Evaluate(tc.content, tc.requester)
			if d.Granted != tc.wantGranted {
				t.Fatalf("granted = %v, want %v", d.Granted, tc.wantGranted)
			}
			if d.Reason != tc.wantReason {
				t.Fatalf("reason = %q, want %q", d.Reason, tc.wantReason)
			}
		})
	}
}

func TestEvaluateNilProfileIsUnpaid(t *testing.T) {
	e := NewEvaluator(fixedClock)
	d := e.Evaluate(Content{Tier: model.TierPremium}, Requester{Authenticated: true})
	if d.Granted {
		t.Fatal("expected deny for authenticated requester with no profile")
	}
	if d.Reason != ReasonPremiumRequired {
		t.Fatalf("reason = %q, want %q", d.Reason, ReasonPremiumRequired)
	}
}

func TestEvaluatorDefaultsToWallClock(t *testing.T) {
	e := NewEvaluator(nil)
	soon := time.Now().Add(time.Hour)
	d := e.Evaluate(Content{Tier: model.TierPremium}, Requester{Authenticated: true, Profile: paidProfile(&soon)})
	if !d.Granted {
		t.Fatal("expected grant for unexpired subscription against wall clock")
	}
}
