package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketmotion/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// TopicRepository manages the topic taxonomy, per-user topic subscriptions and
// the shared per-(topic, date) briefings.
type TopicRepository interface {
	// UpsertTopic reseeds a taxonomy entry idempotently: on name conflict the
	// display fields are updated in place.
	UpsertTopic(ctx context.Context, t *model.Topic) error
	GetTopicByName(ctx context.Context, name string) (*model.Topic, error)
	ListActiveTopics(ctx context.Context) ([]model.Topic, error)

	// UpsertSubscription creates or reactivates the (user, topic) link. At most
	// one row exists per pair; re-subscribing never inserts a duplicate.
	UpsertSubscription(ctx context.Context, sub *model.TopicSubscription) error
	DeactivateSubscription(ctx context.Context, userID, topicID string) error
	ListUserSubscriptions(ctx context.Context, userID string) ([]model.TopicSubscription, error)
	HasActiveSubscription(ctx context.Context, userID, topicID string) (bool, error)

	// UpsertTopicBriefing replaces content in place on (topic_id, briefing_date)
	// conflict, mirroring the slot-briefing upsert.
	UpsertTopicBriefing(ctx context.Context, tb *model.TopicBriefing) error
	GetTopicBriefing(ctx context.Context, topicID string, date time.Time) (*model.TopicBriefing, error)
}

type topicRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewTopicRepo creates a new TopicRepository.
func NewTopicRepo(pool *pgxpool.Pool, logger zerolog.Logger) TopicRepository {
	return &topicRepo{pool: pool, logger: logger.With().Str("repo", "TopicRepository").Logger()}
}

func (r *topicRepo) UpsertTopic(ctx context.Context, t *model.Topic) error {
	const q = `
        INSERT INTO topics (name, display_name, category, description, is_active)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (name) DO UPDATE
        SET display_name = EXCLUDED.display_name,
            category = EXCLUDED.category,
            description = EXCLUDED.description,
            is_active = EXCLUDED.is_active,
            updated_at = NOW()
        RETURNING id, created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q, t.Name, t.DisplayName, t.Category, t.Description, t.IsActive).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert topic %s: %w", t.Name, mapError(err))
	}
	return nil
}

func (r *topicRepo) GetTopicByName(ctx context.Context, name string) (*model.Topic, error) {
	const q = `
        SELECT id, name, display_name, category, COALESCE(description, ''), is_active, created_at, updated_at
        FROM topics
        WHERE name = $1
    `
	var t model.Topic
	err := r.pool.QueryRow(ctx, q, name).Scan(
		&t.ID, &t.Name, &t.DisplayName, &t.Category, &t.Description, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch topic %s: %w", name, err)
	}
	return &t, nil
}

func (r *topicRepo) ListActiveTopics(ctx context.Context) ([]model.Topic, error) {
	const q = `
        SELECT id, name, display_name, category, COALESCE(description, ''), is_active, created_at, updated_at
        FROM topics
        WHERE is_active
        ORDER BY category, display_name
    `
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list active topics: %w", err)
	}
	defer rows.Close()

	var out []model.Topic
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.DisplayName, &t.Category, &t.Description, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan topic row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("topic rows: %w", err)
	}
	return out, nil
}

func (r *topicRepo) UpsertSubscription(ctx context.Context, sub *model.TopicSubscription) error {
	const q = `
        INSERT INTO topic_subscriptions (user_id, topic_id, is_active, notification_enabled, priority)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id, topic_id) DO UPDATE
        SET is_active = EXCLUDED.is_active,
            notification_enabled = EXCLUDED.notification_enabled,
            priority = EXCLUDED.priority
        RETURNING id, created_at
    `
	err := r.pool.QueryRow(ctx, q, sub.UserID, sub.TopicID, sub.IsActive, sub.NotificationEnabled, sub.Priority).
		Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert subscription user %s topic %s: %w", sub.UserID, sub.TopicID, mapError(err))
	}
	return nil
}

func (r *topicRepo) DeactivateSubscription(ctx context.Context, userID, topicID string) error {
	const q = `
        UPDATE topic_subscriptions
        SET is_active = FALSE
        WHERE user_id = $1 AND topic_id = $2
    `
	tag, err := r.pool.Exec(ctx, q, userID, topicID)
	if err != nil {
		return fmt.Errorf("deactivate subscription user %s topic %s: %w", userID, topicID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *topicRepo) ListUserSubscriptions(ctx context.Context, userID string) ([]model.TopicSubscription, error) {
	const q = `
        SELECT ts.id, ts.user_id, ts.topic_id, ts.is_active, ts.notification_enabled, ts.priority, ts.created_at,
               t.id, t.name, t.display_name, t.category, COALESCE(t.description, ''), t.is_active, t.created_at, t.updated_at
        FROM topic_subscriptions ts
        JOIN topics t ON t.id = ts.topic_id
        WHERE ts.user_id = $1 AND ts.is_active
        ORDER BY ts.priority, t.display_name
    `
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []model.TopicSubscription
	for rows.Next() {
		var sub model.TopicSubscription
		var t model.Topic
		if err := rows.Scan(
			&sub.ID, &sub.UserID, &sub.TopicID, &sub.IsActive, &sub.NotificationEnabled, &sub.Priority, &sub.CreatedAt,
			&t.ID, &t.Name, &t.DisplayName, &t.Category, &t.Description, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan subscription row: %w", err)
		}
		sub.Topic = &t
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("subscription rows: %w", err)
	}
	return out, nil
}

func (r *topicRepo) HasActiveSubscription(ctx context.Context, userID, topicID string) (bool, error) {
	const q = `
        SELECT EXISTS (
            SELECT 1 FROM topic_subscriptions
            WHERE user_id = $1 AND topic_id = $2 AND is_active
        )
    `
	var exists bool
	if err := r.pool.QueryRow(ctx, q, userID, topicID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check subscription user %s topic %s: %w", userID, topicID, err)
	}
	return exists, nil
}

func (r *topicRepo) UpsertTopicBriefing(ctx context.Context, tb *model.TopicBriefing) error {
	meta, err := json.Marshal(tb.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata for topic briefing %s: %w", tb.Title, err)
	}
	const q = `
        INSERT INTO topic_briefings (topic_id, title, briefing_date, text_content, audio_file_path, blurb, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (topic_id, briefing_date) DO UPDATE
        SET title = EXCLUDED.title,
            text_content = EXCLUDED.text_content,
            audio_file_path = EXCLUDED.audio_file_path,
            blurb = EXCLUDED.blurb,
            metadata = EXCLUDED.metadata,
            updated_at = NOW()
        RETURNING id, created_at, updated_at
    `
	err = r.pool.QueryRow(ctx, q, tb.TopicID, tb.Title, tb.BriefingDate, tb.TextContent, tb.AudioFilePath, tb.Blurb, meta).
		Scan(&tb.ID, &tb.CreatedAt, &tb.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert topic briefing %s/%s: %w", tb.TopicID, tb.BriefingDate.Format("2006-01-02"), mapError(err))
	}
	return nil
}

func (r *topicRepo) GetTopicBriefing(ctx context.Context, topicID string, date time.Time) (*model.TopicBriefing, error) {
	const q = `
        SELECT id, topic_id, title, briefing_date, COALESCE(text_content, ''), COALESCE(audio_file_path, ''),
               COALESCE(blurb, ''), metadata, created_at, updated_at
        FROM topic_briefings
        WHERE topic_id = $1 AND briefing_date = $2
    `
	var tb model.TopicBriefing
	var rawMeta []byte
	err := r.pool.QueryRow(ctx, q, topicID, date).Scan(
		&tb.ID, &tb.TopicID, &tb.Title, &tb.BriefingDate, &tb.TextContent, &tb.AudioFilePath,
		&tb.Blurb, &rawMeta, &tb.CreatedAt, &tb.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch topic briefing %s/%s: %w", topicID, date.Format("2006-01-02"), err)
	}
	if len(rawMeta) > 0 {
		if err := json.Unmarshal(rawMeta, &tb.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for topic briefing %s: %w", tb.ID, err)
		}
	}
	return &tb, nil
}
