package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// MaxSessionDurationSeconds is the longest session a time.Duration can hold.
const MaxSessionDurationSeconds = math.MaxInt64 / int64(time.Second)

// Tier is a named membership configuration: accrual rate, session length and
// daily login reward.
type Tier struct {
	Name                   string  `json:"name"`
	CoinsPerSecond         float64 `json:"coinsPerSecond"`
	SessionDurationSeconds int64   `json:"sessionDurationSeconds"`
	DailyRewardCoins       int64   `json:"dailyRewardCoins"`
}

// SessionDuration returns the mining session length as a time.Duration.
func (t Tier) SessionDuration() time.Duration {
	return time.Duration(t.SessionDurationSeconds) * time.Second
}

// Validate reports whether the tier can drive a mining session.
func (t Tier) Validate() error {
	if t.Name == "" {
		return errors.New("tier name is required")
	}
	if t.CoinsPerSecond <= 0 {
		return fmt.Errorf("tier %q: coinsPerSecond must be positive", t.Name)
	}
	if t.SessionDurationSeconds <= 0 {
		return fmt.Errorf("tier %q: sessionDurationSeconds must be positive", t.Name)
	}
	if t.SessionDurationSeconds > MaxSessionDurationSeconds {
		return fmt.Errorf("tier %q: sessionDurationSeconds must not exceed %d", t.Name, MaxSessionDurationSeconds)
	}
	if t.DailyRewardCoins < 0 {
		return fmt.Errorf("tier %q: dailyRewardCoins must not be negative", t.Name)
	}
	return nil
}

// TierRepository defines the data-access contract for membership tiers.
type TierRepository interface {
	// GetByName returns the tier with the given name.
	// Returns (nil, nil) when no tier is configured under that name.
	GetByName(ctx context.Context, name string) (*Tier, error)

	// Upsert creates or replaces a tier definition.
	Upsert(ctx context.Context, tier Tier) error
}

// DefaultTier is seeded into every store on first start: one coin per second
// over a 24h session, 100 coins per daily login.
var DefaultTier = Tier{
	Name:                   "free",
	CoinsPerSecond:         1,
	SessionDurationSeconds: 24 * 60 * 60,
	DailyRewardCoins:       100,
}
