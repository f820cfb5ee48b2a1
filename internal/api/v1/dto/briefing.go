package dto

import "time"

// BriefingResponseDTO is a catalog entry annotated with the caller's
// entitlement. Content fields are pointers so denied responses serialize them
// as explicit nulls rather than omitting them.
type BriefingResponseDTO struct {
	ID              string                 `json:"id"`
	Title           string                 `json:"title"`
	BriefingType    string                 `json:"briefing_type"`
	BriefingDate    string                 `json:"briefing_date"`
	Tier            string                 `json:"tier"`
	IsPublic        bool                   `json:"is_public"`
	TextContent     *string                `json:"text_content"`
	AudioURL        *string                `json:"audio_url"`
	WordCount       int                    `json:"word_count"`
	DurationSeconds int                    `json:"duration_seconds"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	CanAccess       bool                   `json:"can_access"`
	AccessReason    string                 `json:"access_reason"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// BriefingListResponseDTO wraps a catalog listing.
type BriefingListResponseDTO struct {
	Briefings []BriefingResponseDTO `json:"briefings"`
	Count     int                   `json:"count"`
}

// GenerateBriefingDTO triggers a slot generation run.
type GenerateBriefingDTO struct {
	BriefingType string `json:"briefing_type" validate:"required,oneof=morning midday evening free_morning free_midday free_evening custom"`
	Force        bool   `json:"force"`
}

// GenerationQueuedResponseDTO acknowledges a generation trigger. JobID is
// empty when the trigger was deduped against an identical one in flight.
type GenerationQueuedResponseDTO struct {
	JobID        string `json:"job_id,omitempty"`
	BriefingType string `json:"briefing_type,omitempty"`
	Topic        string `json:"topic,omitempty"`
	Date         string `json:"date"`
	Status       string `json:"status"`
}

// UsageSummaryResponseDTO reports today's generation budget.
type UsageSummaryResponseDTO struct {
	Date                  string `json:"date"`
	PremiumSlotsUsed      int    `json:"premium_slots_used"`
	PremiumSlotsRemaining int    `json:"premium_slots_remaining"`
}
