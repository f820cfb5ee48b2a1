package dto

import "time"

// UserProfileResponseDTO is returned in API responses.
type UserProfileResponseDTO struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	IsPaidSubscriber      bool       `json:"is_paid_subscriber"`
	SubscriptionTier      string     `json:"subscription_tier"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// SubscriptionUpdateDTO applies a billing event to a profile.
type SubscriptionUpdateDTO struct {
	Tier      string     `json:"tier" validate:"required,oneof=free basic premium"`
	ExpiresAt *time.Time `json:"expires_at"`
}
