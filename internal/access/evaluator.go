// Package access decides whether a requester may read a piece of catalog
// content. The original Supabase deployment expressed this as three stacked
// row-level policies (free-viewable, paid-viewable, public-viewable) whose
// union was implicit; here the same rules are a single ordered function so the
// evaluation order is explicit and testable.
package access

import (
	"time"

	"marketmotion/internal/model"
)

// Grant and denial reasons. These are user-facing strings: clients render the
// denial reason directly in upgrade prompts.
const (
	ReasonFreeTier          = "Free tier content"
	ReasonPublicBriefing    = "Public briefing"
	ReasonPremiumSubscriber = "Premium subscriber access"
	ReasonAuthRequired      = "Authentication required"
	ReasonPremiumRequired   = "Premium subscription required"
)

// Content describes the facts about a briefing that matter for entitlement.
type Content struct {
	Tier     string
	IsPublic bool
}

// Requester describes the caller. Profile is nil for unauthenticated requests.
type Requester struct {
	Authenticated bool
	Profile       *model.UserProfile
}

// Decision is the outcome of an entitlement check. When Granted is false the
// caller must strip text and audio from the response, not just set a flag.
type Decision struct {
	Granted bool
	Reason  string
}

// Evaluator renders access decisions. The clock is injected so expiry checks
// are deterministic under test.
type Evaluator struct {
	now func() time.Time
}

// NewEvaluator returns an Evaluator using the given clock, or time.Now when
// nil.
func NewEvaluator(now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{now: now}
}

// Evaluate applies the entitlement rules in priority order:
//
//  1. Unauthenticated callers only ever see public content.
//  2. Free tier content is available to any authenticated user.
//  3. A public flag unlocks premium content regardless of payment status.
//  4. A currently-paid subscription unlocks everything else.
//
// Rule 3 exists for promotional unlocks; rule 4 is the last-resort grant.
func (e *Evaluator) Evaluate(content Content, req Requester) Decision {
	if !req.Authenticated {
		if content.IsPublic {
			return Decision{Granted: true, Reason: ReasonPublicBriefing}
		}
		return Decision{Granted: false, Reason: ReasonAuthRequired}
	}
	if content.Tier == model.TierFree {
		return Decision{Granted: true, Reason: ReasonFreeTier}
	}
	if content.IsPublic {
		return Decision{Granted: true, Reason: ReasonPublicBriefing}
	}
	if req.Profile.IsCurrentlyPaid(e.now()) {
		return Decision{Granted: true, Reason: ReasonPremiumSubscriber}
	}
	return Decision{Granted: false, Reason: ReasonPremiumRequired}
}
