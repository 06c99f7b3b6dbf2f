package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/mining-service/internal/core/domain"
)

// PgxMiningRepository implements domain.MiningRepository using pgxpool.
// Writes are conditional on the version column, so concurrent
// read-modify-write cycles for the same user cannot both succeed.
type PgxMiningRepository struct {
	pool *pgxpool.Pool
}

// NewMiningRepository creates a new PgxMiningRepository.
func NewMiningRepository(pool *pgxpool.Pool) *PgxMiningRepository {
	return &PgxMiningRepository{pool: pool}
}

// Get returns the session for userID.
// Returns (nil, nil) when the user has never mined.
func (r *PgxMiningRepository) Get(ctx context.Context, userID string) (*domain.MiningSession, error) {
	query := `
		SELECT user_id, accrued_coins, session_coins, session_start, session_end,
		       coins_per_second, tier_name, last_daily_reward_at, version
		FROM mining_sessions
		WHERE user_id = $1
	`

	var s domain.MiningSession
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.AccruedCoins, &s.SessionCoins, &s.SessionStart, &s.SessionEnd,
		&s.CoinsPerSecond, &s.TierName, &s.LastDailyRewardAt, &s.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &s, nil
}

// Save writes the session if the stored version still equals
// expectedVersion (0: row must not exist).
func (r *PgxMiningRepository) Save(ctx context.Context, s *domain.MiningSession, expectedVersion int64) error {
	var (
		query string
		args  []any
	)
	if expectedVersion == 0 {
		query = `
			INSERT INTO mining_sessions (
				user_id, accrued_coins, session_coins, session_start, session_end,
				coins_per_second, tier_name, last_daily_reward_at, version
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (user_id) DO NOTHING
		`
		args = []any{
			s.UserID, s.AccruedCoins, s.SessionCoins, s.SessionStart, s.SessionEnd,
			s.CoinsPerSecond, s.TierName, s.LastDailyRewardAt, s.Version,
		}
	} else {
		query = `
			UPDATE mining_sessions SET
				accrued_coins = $2,
				session_coins = $3,
				session_start = $4,
				session_end = $5,
				coins_per_second = $6,
				tier_name = $7,
				last_daily_reward_at = $8,
				version = $9
			WHERE user_id = $1 AND version = $10
		`
		args = []any{
			s.UserID, s.AccruedCoins, s.SessionCoins, s.SessionStart, s.SessionEnd,
			s.CoinsPerSecond, s.TierName, s.LastDailyRewardAt, s.Version, expectedVersion,
		}
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}
