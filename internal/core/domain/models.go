package domain

import "time"

// User is the public view of a user returned by the API.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	MembershipTier string `json:"membershipTier"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=4,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// ChangeEmailRequest moves an authenticated account to a new address.
type ChangeEmailRequest struct {
	CurrentEmail string `json:"currentEmail" binding:"required,email"`
	NewEmail     string `json:"newEmail" binding:"required,email"`
	Password     string `json:"password" binding:"required"`
}

// DailyReward is the outcome of the login-time reward evaluation.
type DailyReward struct {
	Granted      bool  `json:"granted"`
	AccruedCoins int64 `json:"accruedCoins"`
}

type AuthResponse struct {
	Token       string       `json:"token"`
	User        User         `json:"user"`
	DailyReward *DailyReward `json:"dailyReward,omitempty"`
}

// MiningStatus values reported by start and poll.
const (
	StatusStarted           = "started"
	StatusAlreadyInProgress = "already_in_progress"
	StatusNotStarted        = "not_started"
	StatusInProgress        = "in_progress"
	StatusEnded             = "ended"
)

// SessionResult is returned by both start and poll.
type SessionResult struct {
	Status       string     `json:"status"`
	AccruedCoins int64      `json:"accruedCoins"`
	SessionStart *time.Time `json:"sessionStart,omitempty"`
	SessionEnd   *time.Time `json:"sessionEnd,omitempty"`
}
