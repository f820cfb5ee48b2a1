package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"marketmotion/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is not set, skip database integration test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestUpsertBriefingReplacesSlotInPlace(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewBriefingRepo(pool, zerolog.Nop())

	date := time.Date(1999, 3, 14, 0, 0, 0, 0, time.UTC)
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM briefings WHERE briefing_date = $1`, date)
	})

	first := &model.Briefing{
		Title:        "Morning Market Brief",
		BriefingType: "morning",
		BriefingDate: date,
		Tier:         model.TierPremium,
		TextContent:  "first pass",
	}
	if err := repo.UpsertBriefing(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := &model.Briefing{
		Title:        "Morning Market Brief, regenerated",
		BriefingType: "morning",
		BriefingDate: date,
		Tier:         model.TierPremium,
		TextContent:  "second pass",
	}
	if err := repo.UpsertBriefing(ctx, second); err != nil {
		t.Fatalf("re-upserting the same slot must update in place: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("re-upsert created a new row: %s vs %s", second.ID, first.ID)
	}

	rows, err := repo.ListTodaysBriefings(ctx, date)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row for the slot, got %d", len(rows))
	}
	if rows[0].TextContent != "second pass" || rows[0].Title != second.Title {
		t.Errorf("slot content not replaced: %q / %q", rows[0].Title, rows[0].TextContent)
	}
	if rows[0].UpdatedAt.Before(rows[0].CreatedAt) {
		t.Error("re-upsert must refresh updated_at")
	}
}

func TestUpsertTopicBriefingUniquePerTopicAndDay(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewTopicRepo(pool, zerolog.Nop())

	topic := &model.Topic{
		Name:        "it-" + uuid.NewString()[:8],
		DisplayName: "Integration Topic",
		Category:    "general",
		IsActive:    true,
	}
	if err := repo.UpsertTopic(ctx, topic); err != nil {
		t.Fatalf("seed topic failed: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM topic_briefings WHERE topic_id = $1`, topic.ID)
		pool.Exec(ctx, `DELETE FROM topics WHERE id = $1`, topic.ID)
	})

	date := time.Date(1999, 3, 15, 0, 0, 0, 0, time.UTC)
	first := &model.TopicBriefing{TopicID: topic.ID, Title: "First", BriefingDate: date, TextContent: "first"}
	if err := repo.UpsertTopicBriefing(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	second := &model.TopicBriefing{TopicID: topic.ID, Title: "Second", BriefingDate: date, TextContent: "second"}
	if err := repo.UpsertTopicBriefing(ctx, second); err != nil {
		t.Fatalf("same (topic, date) must update in place: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("re-upsert created a new row: %s vs %s", second.ID, first.ID)
	}

	got, err := repo.GetTopicBriefing(ctx, topic.ID, date)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got.TextContent != "second" {
		t.Errorf("content not replaced, got %q", got.TextContent)
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM topic_briefings WHERE topic_id = $1`, topic.ID).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one row per (topic, date), got %d", count)
	}
}

func TestListTodaysBriefingsOrdersFreeSlotsFirst(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewBriefingRepo(pool, zerolog.Nop())

	date := time.Date(1999, 3, 16, 0, 0, 0, 0, time.UTC)
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM briefings WHERE briefing_date = $1`, date)
	})

	// created_at is pinned per row so the within-group ordering is
	// deterministic regardless of insert timing.
	slots := []struct {
		briefingType string
		tier         string
		createdAt    time.Time
	}{
		{"free_morning", model.TierFree, time.Date(1999, 3, 16, 8, 0, 0, 0, time.UTC)},
		{"free_evening", model.TierFree, time.Date(1999, 3, 16, 20, 0, 0, 0, time.UTC)},
		{"morning", model.TierPremium, time.Date(1999, 3, 16, 9, 0, 0, 0, time.UTC)},
		{"evening", model.TierPremium, time.Date(1999, 3, 16, 21, 0, 0, 0, time.UTC)},
	}
	for _, s := range slots {
		b := &model.Briefing{Title: s.briefingType, BriefingType: s.briefingType, BriefingDate: date, Tier: s.tier}
		if err := repo.UpsertBriefing(ctx, b); err != nil {
			t.Fatalf("seed %s failed: %v", s.briefingType, err)
		}
		if _, err := pool.Exec(ctx, `UPDATE briefings SET created_at = $1 WHERE id = $2`, s.createdAt, b.ID); err != nil {
			t.Fatalf("pin created_at for %s: %v", s.briefingType, err)
		}
	}

	rows, err := repo.ListTodaysBriefings(ctx, date)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{"free_evening", "free_morning", "evening", "morning"}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, w := range want {
		if rows[i].BriefingType != w {
			t.Errorf("position %d: expected %s, got %s", i, w, rows[i].BriefingType)
		}
	}
}
