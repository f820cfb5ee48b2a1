package model

import "time"

// Topic categories form a closed set; anything unclassified is "general".
const (
	TopicCategoryFinancial  = "financial"
	TopicCategoryTechnology = "technology"
	TopicCategoryHealthcare = "healthcare"
	TopicCategoryEnergy     = "energy"
	TopicCategoryPolicy     = "policy"
	TopicCategoryGeneral    = "general"
)

// TopicCategories lists every valid category.
var TopicCategories = []string{
	TopicCategoryFinancial,
	TopicCategoryTechnology,
	TopicCategoryHealthcare,
	TopicCategoryEnergy,
	TopicCategoryPolicy,
	TopicCategoryGeneral,
}

// ValidTopicCategory reports whether c is in the closed category set.
func ValidTopicCategory(c string) bool {
	for _, v := range TopicCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Topic is a subscribable subject in the catalog. Deactivation is soft so past
// briefings and subscriptions keep their references.
type Topic struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Category    string    `db:"category" json:"category"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TopicSubscription links a user to a topic they follow. At most one row per
// (user, topic); re-subscribing flips is_active back on.
type TopicSubscription struct {
	ID                  string    `db:"id" json:"id"`
	UserID              string    `db:"user_id" json:"user_id"`
	TopicID             string    `db:"topic_id" json:"topic_id"`
	IsActive            bool      `db:"is_active" json:"is_active"`
	NotificationEnabled bool      `db:"notification_enabled" json:"notification_enabled"`
	Priority            int       `db:"priority" json:"priority"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	Topic               *Topic    `db:"-" json:"topic,omitempty"`
}

// TopicBriefing is the shared briefing for a (topic, date) pair.
type TopicBriefing struct {
	ID            string                 `db:"id" json:"id"`
	TopicID       string                 `db:"topic_id" json:"topic_id"`
	Title         string                 `db:"title" json:"title"`
	BriefingDate  time.Time              `db:"briefing_date" json:"briefing_date"`
	TextContent   string                 `db:"text_content" json:"text_content,omitempty"`
	AudioFilePath string                 `db:"audio_file_path" json:"audio_file_path,omitempty"`
	Blurb         string                 `db:"blurb" json:"blurb"`
	Metadata      map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time              `db:"updated_at" json:"updated_at"`
}
