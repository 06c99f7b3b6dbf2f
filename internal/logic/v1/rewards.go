package v1

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/mining-service/internal/core/domain"
	"github.com/duynhne/mining-service/middleware"
)

// RewardGranter is invoked after a successful login.
type RewardGranter interface {
	OnLogin(ctx context.Context, userID string) (*domain.DailyReward, error)
}

// DailyRewardEvaluator grants the tier's daily login reward at most once per
// rolling 24 hours.
type DailyRewardEvaluator struct {
	users    domain.UserRepository
	sessions domain.MiningRepository
	tiers    TierSource
	now      Clock
}

// NewDailyRewardEvaluator creates an evaluator. A nil clock means time.Now.
func NewDailyRewardEvaluator(users domain.UserRepository, sessions domain.MiningRepository, tiers TierSource, clock Clock) *DailyRewardEvaluator {
	if clock == nil {
		clock = time.Now
	}
	return &DailyRewardEvaluator{
		users:    users,
		sessions: sessions,
		tiers:    tiers,
		now:      clock,
	}
}

// OnLogin grants the daily reward if none was granted in the last 24 hours.
// The mining record is created on first use. A running session is untouched.
func (r *DailyRewardEvaluator) OnLogin(ctx context.Context, userID string) (*domain.DailyReward, error) {
	ctx, span := middleware.StartSpan(ctx, "mining.daily_reward", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", userID),
	))
	defer span.End()

	user, current, err := loadMiningRecord(ctx, r.users, r.sessions, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("evaluate daily reward for %q: %w", userID, err)
	}

	now := r.now()
	next := domain.NewMiningSession(userID)
	var expected int64
	if current != nil {
		next = current.Clone()
		expected = current.Version
	}

	if !next.RewardDue(now) {
		span.SetAttributes(attribute.Bool("reward.granted", false))
		return &domain.DailyReward{Granted: false, AccruedCoins: next.AccruedCoins}, nil
	}

	tier, err := r.tiers.Resolve(ctx, user.MembershipTier)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("evaluate daily reward for %q: %w", userID, err)
	}

	next.GrantReward(now, tier.DailyRewardCoins)
	if err := saveMiningRecord(ctx, r.sessions, "daily_reward", next, expected); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("evaluate daily reward for %q: %w", userID, err)
	}

	dailyRewardsGranted.Inc()
	coinsCredited.WithLabelValues(sourceDailyReward).Add(float64(tier.DailyRewardCoins))
	zerolog.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("tier", tier.Name).
		Int64("reward_coins", tier.DailyRewardCoins).
		Int64("accrued_coins", next.AccruedCoins).
		Msg("Daily reward granted")

	span.SetAttributes(attribute.Bool("reward.granted", true))
	return &domain.DailyReward{Granted: true, AccruedCoins: next.AccruedCoins}, nil
}
