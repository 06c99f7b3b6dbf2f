// Package v1 provides the business logic for API version 1: authentication,
// the mining session engine, the daily login reward and tier resolution.
//
// Error Handling:
// This package defines sentinel errors for every failure a caller is expected
// to branch on. They are wrapped with context using fmt.Errorf("%w") and
// checked with errors.Is in the web layer.
//
// Example Usage:
//
//	if user == nil {
//	    return nil, fmt.Errorf("start mining for %q: %w", userID, ErrUserNotFound)
//	}
//
// Error Checking (in handlers):
//
//	switch {
//	case errors.Is(err, logicv1.ErrUserNotFound):
//	    c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
//	case errors.Is(err, logicv1.ErrConcurrentUpdate):
//	    c.JSON(http.StatusConflict, gin.H{"error": "Concurrent update, retry"})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
//	}
package v1

import "errors"

// Sentinel errors for authentication operations.
var (
	// ErrInvalidCredentials indicates the provided credentials are incorrect.
	// HTTP Status: 401 Unauthorized
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound indicates the user does not exist in the system.
	// HTTP Status: 401 on login (don't reveal user existence), 404 elsewhere
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates the username or email already exists in the system.
	// HTTP Status: 409 Conflict
	ErrUserExists = errors.New("user already exists")

	// ErrSessionNotFound indicates the session token does not exist.
	// HTTP Status: 401 Unauthorized
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the session token has expired.
	// HTTP Status: 401 Unauthorized
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidOTP indicates the password reset code is wrong, expired or
	// already used.
	// HTTP Status: 400 Bad Request
	ErrInvalidOTP = errors.New("invalid or expired reset code")
)

// Sentinel errors for mining operations.
var (
	// ErrTierNotFound indicates the user's membership tier has no valid
	// configuration. It is a configuration error: surfaced, never retried and
	// never replaced by a zero-rate default.
	// HTTP Status: 500 Internal Server Error
	ErrTierNotFound = errors.New("membership tier not found")

	// ErrClockSkew indicates the current time precedes the stored session
	// start, i.e. a clock or data-corruption problem.
	// HTTP Status: 500 Internal Server Error
	ErrClockSkew = errors.New("clock skew: current time precedes session start")

	// ErrConcurrentUpdate indicates another request modified the mining
	// record between read and write. Safe to retry.
	// HTTP Status: 409 Conflict
	ErrConcurrentUpdate = errors.New("mining session modified concurrently")
)
