package repository

import (
	"time"

	"github.com/duynhne/mining-service/internal/core/domain"
)

// BSON document shapes. One canonical schema per entity; _id carries the
// natural key so lookups hit the primary index.

type userDocument struct {
	ID             string     `bson:"_id"`
	Username       string     `bson:"username"`
	Email          string     `bson:"email"`
	PasswordHash   string     `bson:"password_hash"`
	MembershipTier string     `bson:"membership_tier"`
	CreatedAt      time.Time  `bson:"created_at"`
	LastLogin      *time.Time `bson:"last_login"`
}

func (d userDocument) toRow() *domain.UserRow {
	return &domain.UserRow{
		ID:             d.ID,
		Username:       d.Username,
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		MembershipTier: d.MembershipTier,
		CreatedAt:      d.CreatedAt,
		LastLogin:      d.LastLogin,
	}
}

type sessionDocument struct {
	Token     string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

type tierDocument struct {
	Name                   string  `bson:"_id"`
	CoinsPerSecond         float64 `bson:"coins_per_second"`
	SessionDurationSeconds int64   `bson:"session_duration_seconds"`
	DailyRewardCoins       int64   `bson:"daily_reward_coins"`
}

type miningDocument struct {
	UserID            string     `bson:"_id"`
	AccruedCoins      int64      `bson:"accrued_coins"`
	SessionCoins      int64      `bson:"session_coins"`
	SessionStart      *time.Time `bson:"session_start"`
	SessionEnd        *time.Time `bson:"session_end"`
	CoinsPerSecond    float64    `bson:"coins_per_second"`
	TierName          string     `bson:"tier_name"`
	LastDailyRewardAt *time.Time `bson:"last_daily_reward_at"`
	Version           int64      `bson:"version"`
}

func newMiningDocument(s *domain.MiningSession) miningDocument {
	return miningDocument{
		UserID:            s.UserID,
		AccruedCoins:      s.AccruedCoins,
		SessionCoins:      s.SessionCoins,
		SessionStart:      s.SessionStart,
		SessionEnd:        s.SessionEnd,
		CoinsPerSecond:    s.CoinsPerSecond,
		TierName:          s.TierName,
		LastDailyRewardAt: s.LastDailyRewardAt,
		Version:           s.Version,
	}
}

func (d miningDocument) toSession() *domain.MiningSession {
	return &domain.MiningSession{
		UserID:            d.UserID,
		AccruedCoins:      d.AccruedCoins,
		SessionCoins:      d.SessionCoins,
		SessionStart:      d.SessionStart,
		SessionEnd:        d.SessionEnd,
		CoinsPerSecond:    d.CoinsPerSecond,
		TierName:          d.TierName,
		LastDailyRewardAt: d.LastDailyRewardAt,
		Version:           d.Version,
	}
}
