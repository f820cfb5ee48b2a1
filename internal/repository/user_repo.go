package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketmotion/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository defines methods for accessing subscriber profiles.
type UserRepository interface {
	// UpsertProfile creates the profile on first authentication; repeat calls
	// refresh the email and are otherwise no-ops.
	UpsertProfile(ctx context.Context, userID, email string) (*model.UserProfile, error)
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	// UpdateSubscription applies a subscription change event. Expiry may be nil
	// for subscriptions without a fixed end.
	UpdateSubscription(ctx context.Context, userID, tier string, isPaid bool, expiresAt *time.Time) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a new UserRepository.
func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) UpsertProfile(ctx context.Context, userID, email string) (*model.UserProfile, error) {
	const q = `
        INSERT INTO user_profiles (id, email)
        VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE
        SET email = EXCLUDED.email,
            updated_at = NOW()
        RETURNING id, email, is_paid_subscriber, subscription_tier, subscription_expires_at, created_at, updated_at
    `
	var u model.UserProfile
	err := r.pool.QueryRow(ctx, q, userID, email).Scan(
		&u.ID,
		&u.Email,
		&u.IsPaidSubscriber,
		&u.SubscriptionTier,
		&u.SubscriptionExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert profile for user %s: %w", userID, mapError(err))
	}
	return &u, nil
}

func (r *userRepo) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	const q = `
        SELECT id, email, is_paid_subscriber, subscription_tier, subscription_expires_at, created_at, updated_at
        FROM user_profiles
        WHERE id = $1
    `
	var u model.UserProfile
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&u.ID,
		&u.Email,
		&u.IsPaidSubscriber,
		&u.SubscriptionTier,
		&u.SubscriptionExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch profile for user %s: %w", userID, err)
	}
	return &u, nil
}

func (r *userRepo) UpdateSubscription(ctx context.Context, userID, tier string, isPaid bool, expiresAt *time.Time) error {
	const q = `
        UPDATE user_profiles
        SET subscription_tier = $2,
            is_paid_subscriber = $3,
            subscription_expires_at = $4,
            updated_at = NOW()
        WHERE id = $1
    `
	tag, err := r.pool.Exec(ctx, q, userID, tier, isPaid, expiresAt)
	if err != nil {
		return fmt.Errorf("update subscription for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
