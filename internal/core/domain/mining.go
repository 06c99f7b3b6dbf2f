package domain

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrVersionConflict is returned by MiningRepository.Save when the stored
// record no longer carries the expected version.
var ErrVersionConflict = errors.New("mining session version conflict")

// DailyRewardInterval is the rolling window in which at most one daily
// reward is granted.
const DailyRewardInterval = 24 * time.Hour

// MiningState is the lifecycle state of a user's mining session.
type MiningState int

const (
	// MiningIdle means no session timestamps are set.
	MiningIdle MiningState = iota
	// MiningActive means a session is running and now < SessionEnd.
	MiningActive
	// MiningExpired means now >= SessionEnd and the session is not settled yet.
	MiningExpired
)

func (s MiningState) String() string {
	switch s {
	case MiningActive:
		return "active"
	case MiningExpired:
		return "expired"
	default:
		return "idle"
	}
}

// MiningSession is the persisted mining record, one per user.
//
// SessionStart and SessionEnd are either both set or both nil. AccruedCoins
// is the user's whole balance: past settlements, daily rewards and whatever
// the running session has credited so far (SessionCoins).
type MiningSession struct {
	UserID            string
	AccruedCoins      int64
	SessionCoins      int64
	SessionStart      *time.Time
	SessionEnd        *time.Time
	CoinsPerSecond    float64
	TierName          string
	LastDailyRewardAt *time.Time
	Version           int64
}

// NewMiningSession returns the zero-balance record created on first use.
func NewMiningSession(userID string) *MiningSession {
	return &MiningSession{UserID: userID}
}

// State classifies the session at the given instant.
func (s *MiningSession) State(now time.Time) MiningState {
	if s.SessionStart == nil || s.SessionEnd == nil {
		return MiningIdle
	}
	if now.Before(*s.SessionEnd) {
		return MiningActive
	}
	return MiningExpired
}

// Clone returns a deep copy so callers can mutate without touching the
// value read from storage.
func (s *MiningSession) Clone() *MiningSession {
	c := *s
	c.SessionStart = cloneTime(s.SessionStart)
	c.SessionEnd = cloneTime(s.SessionEnd)
	c.LastDailyRewardAt = cloneTime(s.LastDailyRewardAt)
	return &c
}

// Begin opens a new session at now using the tier's duration and rate.
// The session must be idle. Timestamps keep millisecond precision, the
// finest every store persists.
func (s *MiningSession) Begin(now time.Time, tier Tier) {
	start := now.UTC().Truncate(time.Millisecond)
	end := start.Add(tier.SessionDuration())
	s.SessionStart = &start
	s.SessionEnd = &end
	s.CoinsPerSecond = tier.CoinsPerSecond
	s.TierName = tier.Name
	s.SessionCoins = 0
}

// Accrue credits coins mined between SessionStart and now. It returns the
// number of coins newly credited, or ErrNegativeElapsed when now precedes
// SessionStart.
func (s *MiningSession) Accrue(now time.Time) (int64, error) {
	elapsed := now.Sub(*s.SessionStart)
	if elapsed < 0 {
		return 0, ErrNegativeElapsed
	}
	return s.credit(MinedCoins(elapsed, s.CoinsPerSecond)), nil
}

// Settle credits the full session (SessionEnd - SessionStart, never later
// than SessionEnd) and clears the session fields. It returns the number of
// coins newly credited.
func (s *MiningSession) Settle() int64 {
	credited := s.credit(MinedCoins(s.SessionEnd.Sub(*s.SessionStart), s.CoinsPerSecond))
	s.SessionStart = nil
	s.SessionEnd = nil
	s.SessionCoins = 0
	s.CoinsPerSecond = 0
	s.TierName = ""
	return credited
}

// RewardDue reports whether a daily reward may be granted at now.
func (s *MiningSession) RewardDue(now time.Time) bool {
	return s.LastDailyRewardAt == nil || now.Sub(*s.LastDailyRewardAt) >= DailyRewardInterval
}

// GrantReward adds coins to the balance and stamps the reward time.
// SessionCoins is left alone so a running session keeps accruing correctly.
func (s *MiningSession) GrantReward(now time.Time, coins int64) {
	at := now.UTC().Truncate(time.Millisecond)
	s.AccruedCoins += coins
	s.LastDailyRewardAt = &at
}

// credit moves the session's running total to mined, never backwards.
func (s *MiningSession) credit(mined int64) int64 {
	if mined <= s.SessionCoins {
		return 0
	}
	delta := mined - s.SessionCoins
	s.SessionCoins = mined
	s.AccruedCoins += delta
	return delta
}

// ErrNegativeElapsed signals that the clock reads earlier than SessionStart.
var ErrNegativeElapsed = errors.New("elapsed time is negative")

// MinedCoins is floor(whole elapsed seconds * rate).
func MinedCoins(elapsed time.Duration, coinsPerSecond float64) int64 {
	seconds := int64(elapsed / time.Second)
	if seconds <= 0 || coinsPerSecond <= 0 {
		return 0
	}
	return int64(math.Floor(float64(seconds) * coinsPerSecond))
}

// MiningRepository defines the data-access contract for mining sessions.
type MiningRepository interface {
	// Get returns the session for userID.
	// Returns (nil, nil) when the user has never mined.
	Get(ctx context.Context, userID string) (*MiningSession, error)

	// Save writes session only if the stored version equals expectedVersion;
	// expectedVersion 0 means the record must not exist yet. The stored
	// version becomes session.Version. Returns ErrVersionConflict otherwise.
	Save(ctx context.Context, session *MiningSession, expectedVersion int64) error
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
