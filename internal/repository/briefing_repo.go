package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"marketmotion/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ListBriefingsFilter narrows a catalog listing. Zero values mean "no filter".
type ListBriefingsFilter struct {
	StartDate    *time.Time
	EndDate      *time.Time
	BriefingType string
	Limit        int
}

// BriefingRepository is the catalog store for shared briefings. The uniqueness
// constraint on (briefing_date, briefing_type, tier) is the serialization
// point for concurrent generation: the upsert is a single atomic conditional
// write, so two racing writers leave exactly one row.
type BriefingRepository interface {
	// UpsertBriefing inserts the slot row or replaces its content in place,
	// refreshing updated_at. The briefing's ID and timestamps are populated on
	// return.
	UpsertBriefing(ctx context.Context, b *model.Briefing) error
	GetBriefingByID(ctx context.Context, id string) (*model.Briefing, error)
	// ListTodaysBriefings returns all rows for the given date with free slots
	// first, newest first within each group. The ordering is a UX contract:
	// free content surfaces first for browsing.
	ListTodaysBriefings(ctx context.Context, date time.Time) ([]model.Briefing, error)
	ListFreeBriefings(ctx context.Context, limit int) ([]model.Briefing, error)
	ListBriefings(ctx context.Context, filter ListBriefingsFilter) ([]model.Briefing, error)
}

type briefingRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewBriefingRepo creates a new BriefingRepository.
func NewBriefingRepo(pool *pgxpool.Pool, logger zerolog.Logger) BriefingRepository {
	return &briefingRepo{pool: pool, logger: logger.With().Str("repo", "BriefingRepository").Logger()}
}

const briefingColumns = `id, title, briefing_type, briefing_date, tier, is_public,
       COALESCE(text_content, ''), COALESCE(audio_file_path, ''), COALESCE(text_file_path, ''),
       COALESCE(word_count, 0), COALESCE(duration_seconds, 0), metadata, created_at, updated_at`

func (r *briefingRepo) UpsertBriefing(ctx context.Context, b *model.Briefing) error {
	meta, err := json.Marshal(b.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata for briefing %s: %w", b.Title, err)
	}
	const q = `
        INSERT INTO briefings (title, briefing_type, briefing_date, tier, is_public,
                               text_content, audio_file_path, text_file_path,
                               word_count, duration_seconds, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (briefing_date, briefing_type, tier) DO UPDATE
        SET title = EXCLUDED.title,
            is_public = EXCLUDED.is_public,
            text_content = EXCLUDED.text_content,
            audio_file_path = EXCLUDED.audio_file_path,
            text_file_path = EXCLUDED.text_file_path,
            word_count = EXCLUDED.word_count,
            duration_seconds = EXCLUDED.duration_seconds,
            metadata = EXCLUDED.metadata,
            updated_at = NOW()
        RETURNING id, created_at, updated_at
    `
	err = r.pool.QueryRow(ctx, q,
		b.Title, b.BriefingType, b.BriefingDate, b.Tier, b.IsPublic,
		b.TextContent, b.AudioFilePath, b.TextFilePath,
		b.WordCount, b.DurationSeconds, meta,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert briefing %s/%s/%s: %w",
			b.BriefingDate.Format("2006-01-02"), b.BriefingType, b.Tier, mapError(err))
	}
	return nil
}

func (r *briefingRepo) GetBriefingByID(ctx context.Context, id string) (*model.Briefing, error) {
	q := `SELECT ` + briefingColumns + ` FROM briefings WHERE id = $1`
	row := r.pool.QueryRow(ctx, q, id)
	b, err := scanBriefing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch briefing %s: %w", id, err)
	}
	return b, nil
}

func (r *briefingRepo) ListTodaysBriefings(ctx context.Context, date time.Time) ([]model.Briefing, error) {
	q := `
        SELECT ` + briefingColumns + `
        FROM briefings
        WHERE briefing_date = $1
        ORDER BY CASE WHEN briefing_type LIKE 'free\_%' THEN 1 ELSE 2 END,
                 created_at DESC
    `
	rows, err := r.pool.Query(ctx, q, date)
	if err != nil {
		return nil, fmt.Errorf("list briefings for %s: %w", date.Format("2006-01-02"), err)
	}
	defer rows.Close()
	return collectBriefings(rows)
}

func (r *briefingRepo) ListFreeBriefings(ctx context.Context, limit int) ([]model.Briefing, error) {
	q := `
        SELECT ` + briefingColumns + `
        FROM briefings
        WHERE tier = 'free'
        ORDER BY briefing_date DESC, created_at DESC
        LIMIT $1
    `
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list free briefings: %w", err)
	}
	defer rows.Close()
	return collectBriefings(rows)
}

func (r *briefingRepo) ListBriefings(ctx context.Context, filter ListBriefingsFilter) ([]model.Briefing, error) {
	q := `SELECT ` + briefingColumns + ` FROM briefings WHERE 1=1`
	args := []interface{}{}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		q += ` AND briefing_date >= $` + strconv.Itoa(len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		q += ` AND briefing_date <= $` + strconv.Itoa(len(args))
	}
	if filter.BriefingType != "" {
		args = append(args, filter.BriefingType)
		q += ` AND briefing_type = $` + strconv.Itoa(len(args))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit)
	q += ` ORDER BY briefing_date DESC, created_at DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list briefings: %w", err)
	}
	defer rows.Close()
	return collectBriefings(rows)
}

func scanBriefing(row pgx.Row) (*model.Briefing, error) {
	var b model.Briefing
	var rawMeta []byte
	err := row.Scan(
		&b.ID, &b.Title, &b.BriefingType, &b.BriefingDate, &b.Tier, &b.IsPublic,
		&b.TextContent, &b.AudioFilePath, &b.TextFilePath,
		&b.WordCount, &b.DurationSeconds, &rawMeta, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(rawMeta) > 0 {
		if err := json.Unmarshal(rawMeta, &b.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for briefing %s: %w", b.ID, err)
		}
	}
	return &b, nil
}

func collectBriefings(rows pgx.Rows) ([]model.Briefing, error) {
	var out []model.Briefing
	for rows.Next() {
		b, err := scanBriefing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan briefing row: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("briefing rows: %w", err)
	}
	return out, nil
}
