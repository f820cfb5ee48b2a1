package model

import "time"

// Subscriber tiers.
const (
	SubscriptionTierFree    = "free"
	SubscriptionTierBasic   = "basic"
	SubscriptionTierPremium = "premium"
)

// UserProfile represents a subscriber. Rows are created on first
// authentication and never hard-deleted while the auth identity exists.
type UserProfile struct {
	ID                    string     `db:"id" json:"id"`
	Email                 string     `db:"email" json:"email"`
	IsPaidSubscriber      bool       `db:"is_paid_subscriber" json:"is_paid_subscriber"`
	SubscriptionTier      string     `db:"subscription_tier" json:"subscription_tier"`
	SubscriptionExpiresAt *time.Time `db:"subscription_expires_at" json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// IsCurrentlyPaid reports whether the subscription is paid and unexpired as of
// now. Expiry is evaluated at read time; the stored flag is never flipped
// eagerly.
func (u *UserProfile) IsCurrentlyPaid(now time.Time) bool {
	if u == nil || !u.IsPaidSubscriber {
		return false
	}
	if u.SubscriptionExpiresAt == nil {
		return true
	}
	return u.SubscriptionExpiresAt.After(now)
}
