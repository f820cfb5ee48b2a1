package dto

import "time"

// TopicResponseDTO is a subscribable topic.
type TopicResponseDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// TopicCreateDTO seeds or refreshes a taxonomy entry.
type TopicCreateDTO struct {
	Name        string  `json:"name" validate:"required,min=2,max=64"`
	DisplayName string  `json:"display_name" validate:"required,min=2,max=128"`
	Category    string  `json:"category" validate:"required"`
	Description *string `json:"description"`
}

// TopicSubscriptionResponseDTO is an active (user, topic) link.
type TopicSubscriptionResponseDTO struct {
	ID                  string            `json:"id"`
	TopicID             string            `json:"topic_id"`
	IsActive            bool              `json:"is_active"`
	NotificationEnabled bool              `json:"notification_enabled"`
	Priority            int               `json:"priority"`
	Topic               *TopicResponseDTO `json:"topic,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

// TopicBriefingResponseDTO is a topic briefing annotated with entitlement.
// Like BriefingResponseDTO, content fields are explicit nulls when denied.
type TopicBriefingResponseDTO struct {
	ID           string    `json:"id"`
	TopicID      string    `json:"topic_id"`
	Title        string    `json:"title"`
	BriefingDate string    `json:"briefing_date"`
	TextContent  *string   `json:"text_content"`
	AudioURL     *string   `json:"audio_url"`
	Blurb        string    `json:"blurb"`
	CanAccess    bool      `json:"can_access"`
	AccessReason string    `json:"access_reason"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GenerateTopicBriefingDTO triggers a topic generation run.
type GenerateTopicBriefingDTO struct {
	Force bool `json:"force"`
}
