package model

import (
	"strings"
	"time"
)

// Content tiers. Subscriber tiers live on UserProfile; these gate content.
const (
	TierFree    = "free"
	TierPremium = "premium"
)

// Briefing slot types. The free_ prefix is a naming contract: catalog views
// sort free_ slots ahead of premium ones.
const (
	BriefingTypeMorning     = "morning"
	BriefingTypeMidday      = "midday"
	BriefingTypeEvening     = "evening"
	BriefingTypeFreeMorning = "free_morning"
	BriefingTypeFreeMidday  = "free_midday"
	BriefingTypeFreeEvening = "free_evening"
	BriefingTypeCustom      = "custom"
)

// PremiumSlotTypes are the scheduled premium slots; their count is the daily
// premium generation ceiling.
var PremiumSlotTypes = []string{BriefingTypeMorning, BriefingTypeMidday, BriefingTypeEvening}

// IsFreeSlotType reports whether a briefing type belongs to the free schedule.
func IsFreeSlotType(briefingType string) bool {
	return strings.HasPrefix(briefingType, "free_")
}

// Briefing is one generated audio+text artifact for a (date, type, tier) slot.
// It is shared content: there is no owning user, access is decided per request
// from tier and visibility.
type Briefing struct {
	ID              string                 `db:"id" json:"id"`
	Title           string                 `db:"title" json:"title"`
	BriefingType    string                 `db:"briefing_type" json:"briefing_type"`
	BriefingDate    time.Time              `db:"briefing_date" json:"briefing_date"`
	Tier            string                 `db:"tier" json:"tier"`
	IsPublic        bool                   `db:"is_public" json:"is_public"`
	TextContent     string                 `db:"text_content" json:"text_content,omitempty"`
	AudioFilePath   string                 `db:"audio_file_path" json:"audio_file_path,omitempty"`
	TextFilePath    string                 `db:"text_file_path" json:"text_file_path,omitempty"`
	WordCount       int                    `db:"word_count" json:"word_count"`
	DurationSeconds int                    `db:"duration_seconds" json:"duration_seconds"`
	Metadata        map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	CreatedAt       time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time              `db:"updated_at" json:"updated_at"`
}
