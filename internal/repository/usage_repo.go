package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository answers the usage-ledger questions that gate generation.
// All reads are snapshots: briefings are shared content, so the counts are
// derived from the catalog itself rather than a per-user event log, and the
// catalog's uniqueness constraints are the real concurrency guard.
type UsageRepository interface {
	// SlotExists reports whether a briefing already occupies (date, type, tier).
	SlotExists(ctx context.Context, date time.Time, briefingType, tier string) (bool, error)
	// CountPremiumSlots counts the distinct scheduled premium slots already
	// generated for the date.
	CountPremiumSlots(ctx context.Context, date time.Time, slotTypes []string) (int, error)
	// CountTopicBriefingsForUser counts today's briefings for a topic the user
	// actively follows. A topic the user is not subscribed to counts as zero.
	CountTopicBriefingsForUser(ctx context.Context, userID, topicID string, date time.Time) (int, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) SlotExists(ctx context.Context, date time.Time, briefingType, tier string) (bool, error) {
	const q = `
        SELECT EXISTS (
            SELECT 1 FROM briefings
            WHERE briefing_date = $1 AND briefing_type = $2 AND tier = $3
        )
    `
	var exists bool
	if err := r.pool.QueryRow(ctx, q, date, briefingType, tier).Scan(&exists); err != nil {
		return false, fmt.Errorf("check slot %s/%s/%s: %w", date.Format("2006-01-02"), briefingType, tier, err)
	}
	return exists, nil
}

func (r *usageRepo) CountPremiumSlots(ctx context.Context, date time.Time, slotTypes []string) (int, error) {
	const q = `
        SELECT COUNT(DISTINCT briefing_type)
        FROM briefings
        WHERE briefing_date = $1 AND tier = 'premium' AND briefing_type = ANY($2)
    `
	var count int
	if err := r.pool.QueryRow(ctx, q, date, slotTypes).Scan(&count); err != nil {
		return 0, fmt.Errorf("count premium slots for %s: %w", date.Format("2006-01-02"), err)
	}
	return count, nil
}

func (r *usageRepo) CountTopicBriefingsForUser(ctx context.Context, userID, topicID string, date time.Time) (int, error) {
	const q = `
        SELECT COUNT(*)
        FROM topic_briefings tb
        JOIN topic_subscriptions ts ON ts.topic_id = tb.topic_id
        WHERE ts.user_id = $1
          AND ts.is_active
          AND tb.topic_id = $2
          AND tb.briefing_date = $3
    `
	var count int
	if err := r.pool.QueryRow(ctx, q, userID, topicID, date).Scan(&count); err != nil {
		return 0, fmt.Errorf("count topic briefings for user %s topic %s: %w", userID, topicID, err)
	}
	return count, nil
}
