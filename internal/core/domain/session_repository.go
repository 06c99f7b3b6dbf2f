package domain

import (
	"context"
	"time"
)

// SessionRow represents an auth session joined with its owner user,
// returned by session lookup queries.
type SessionRow struct {
	UserID         string
	Username       string
	Email          string
	MembershipTier string
	ExpiresAt      time.Time
}

// SessionRepository defines the data-access contract for bearer-token
// sessions. Not to be confused with MiningRepository.
type SessionRepository interface {
	// Create inserts a new session for the given user.
	Create(ctx context.Context, userID, token string, expiresAt time.Time) error

	// GetUserByToken looks up the session by token and returns the associated
	// user data together with the session expiry time.
	// Returns (nil, nil) when the token does not match any session.
	GetUserByToken(ctx context.Context, token string) (*SessionRow, error)

	// DeleteExpired removes every session that expired before now and
	// reports how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
