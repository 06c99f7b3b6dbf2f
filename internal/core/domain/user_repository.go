package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateUser is returned by Create and UpdateEmail when the username
	// or email is already taken by another user.
	ErrDuplicateUser = errors.New("username or email already taken")

	// ErrUserNotFound is returned by the Update methods when no user has the
	// given id.
	ErrUserNotFound = errors.New("user not found")
)

// UserRow represents a user record returned from storage.
// It includes the password hash so the Logic layer can verify credentials.
type UserRow struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	MembershipTier string
	CreatedAt      time.Time
	LastLogin      *time.Time
}

// UserRepository defines the data-access contract for user operations.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only, never on a driver directly.
type UserRepository interface {
	// GetByID returns the user with the given id.
	// Returns (nil, nil) when no user is found.
	GetByID(ctx context.Context, id string) (*UserRow, error)

	// GetByUsername returns the user matching the given username.
	// Returns (nil, nil) when no user is found.
	GetByUsername(ctx context.Context, username string) (*UserRow, error)

	// GetByEmail returns the user matching the given email.
	// Returns (nil, nil) when no user is found.
	GetByEmail(ctx context.Context, email string) (*UserRow, error)

	// ExistsByUsernameOrEmail returns true when a user with the given
	// username or email already exists.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// Create inserts a new user. The caller assigns the ID.
	// Returns ErrDuplicateUser when the username or email is taken.
	Create(ctx context.Context, user UserRow) error

	// UpdateLastLogin sets the last_login timestamp for the given user.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// UpdatePassword replaces the stored password hash.
	// Returns ErrUserNotFound when no user has userID.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// UpdateEmail changes the user's email.
	// Returns ErrDuplicateUser when another user holds email and
	// ErrUserNotFound when no user has userID.
	UpdateEmail(ctx context.Context, userID, email string) error
}
