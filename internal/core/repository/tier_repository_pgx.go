package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/mining-service/internal/core/domain"
)

// PgxTierRepository implements domain.TierRepository using pgxpool.
type PgxTierRepository struct {
	pool *pgxpool.Pool
}

// NewTierRepository creates a new PgxTierRepository.
func NewTierRepository(pool *pgxpool.Pool) *PgxTierRepository {
	return &PgxTierRepository{pool: pool}
}

// GetByName returns the tier with the given name.
// Returns (nil, nil) when no tier is configured under that name.
func (r *PgxTierRepository) GetByName(ctx context.Context, name string) (*domain.Tier, error) {
	query := `SELECT name, coins_per_second, session_duration_seconds, daily_reward_coins
		FROM membership_tiers WHERE name = $1`

	var tier domain.Tier
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&tier.Name, &tier.CoinsPerSecond, &tier.SessionDurationSeconds, &tier.DailyRewardCoins,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &tier, nil
}

// Upsert creates or replaces a tier definition.
func (r *PgxTierRepository) Upsert(ctx context.Context, tier domain.Tier) error {
	query := `
		INSERT INTO membership_tiers (name, coins_per_second, session_duration_seconds, daily_reward_coins)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			coins_per_second = excluded.coins_per_second,
			session_duration_seconds = excluded.session_duration_seconds,
			daily_reward_coins = excluded.daily_reward_coins
	`
	_, err := r.pool.Exec(ctx, query,
		tier.Name, tier.CoinsPerSecond, tier.SessionDurationSeconds, tier.DailyRewardCoins,
	)
	return err
}
