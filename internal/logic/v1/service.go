package v1

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/mining-service/internal/core/domain"
	"github.com/duynhne/mining-service/middleware"
)

// ResetCodes issues and verifies one-time password reset codes.
type ResetCodes interface {
	Issue(email string) (string, error)
	Verify(email, code string) bool
}

// ResetNotifier delivers a reset code to the account owner.
type ResetNotifier interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// AuthSettings holds the tunables AuthService needs from configuration.
type AuthSettings struct {
	DefaultTier string
	SessionTTL  time.Duration
}

// AuthService implements authentication business rules.
// It depends on repository interfaces (injected via constructor) and
// MUST NOT access the database directly.
type AuthService struct {
	users      domain.UserRepository
	sessions   domain.SessionRepository
	rewards    RewardGranter
	resetCodes ResetCodes
	notifier   ResetNotifier
	settings   AuthSettings
	now        Clock
}

// NewAuthService creates a new AuthService with the given dependencies.
// rewards may be nil, in which case logins grant no daily reward.
func NewAuthService(
	users domain.UserRepository,
	sessions domain.SessionRepository,
	rewards RewardGranter,
	resetCodes ResetCodes,
	notifier ResetNotifier,
	settings AuthSettings,
) *AuthService {
	if settings.SessionTTL <= 0 {
		settings.SessionTTL = 24 * time.Hour
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		rewards:    rewards,
		resetCodes: resetCodes,
		notifier:   notifier,
		settings:   settings,
		now:        time.Now,
	}
}

// Login handles user login business logic.
// On success the daily reward is evaluated; a reward failure never fails
// the login.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", req.Username),
	))
	defer span.End()

	row, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user %q: %w", req.Username, err)
	}
	if row == nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate user %q: %w", req.Username, ErrUserNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(req.Password)); err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate user %q: %w", req.Username, ErrInvalidCredentials)
	}

	// Best-effort, don't fail login.
	if updateErr := s.users.UpdateLastLogin(ctx, row.ID, s.now().UTC()); updateErr != nil {
		span.RecordError(fmt.Errorf("update last_login: %w", updateErr))
	}

	token, err := s.issueSession(ctx, row.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	response := &domain.AuthResponse{
		Token: token,
		User:  toUser(row),
	}

	if s.rewards != nil {
		reward, rewardErr := s.rewards.OnLogin(ctx, row.ID)
		if rewardErr != nil {
			span.RecordError(fmt.Errorf("daily reward: %w", rewardErr))
			zerolog.Ctx(ctx).Warn().Err(rewardErr).Str("user_id", row.ID).Msg("Daily reward evaluation failed")
		} else {
			response.DailyReward = reward
		}
	}

	span.SetAttributes(
		attribute.String("user.id", row.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")

	return response, nil
}

// Register handles user registration business logic.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.register", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", req.Username),
		attribute.String("email", req.Email),
	))
	defer span.End()

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		span.SetAttributes(attribute.Bool("registration.success", false))
		return nil, fmt.Errorf("register user %q: %w", req.Username, ErrUserExists)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	row := domain.UserRow{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		PasswordHash:   string(passwordHash),
		MembershipTier: s.settings.DefaultTier,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.users.Create(ctx, row); err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			span.SetAttributes(attribute.Bool("registration.success", false))
			return nil, fmt.Errorf("register user %q: %w", req.Username, ErrUserExists)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("insert user: %w", err)
	}

	token, err := s.issueSession(ctx, row.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("user.id", row.ID),
		attribute.Bool("registration.success", true),
	)
	span.AddEvent("user.registered")

	return &domain.AuthResponse{
		Token: token,
		User:  toUser(&row),
	}, nil
}

// GetUserByToken retrieves user info from a session token.
func (s *AuthService) GetUserByToken(ctx context.Context, token string) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.get_user_by_token", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	row, err := s.sessions.GetUserByToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query session: %w", err)
	}
	if row == nil {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("lookup session: %w", ErrSessionNotFound)
	}

	if s.now().After(row.ExpiresAt) {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("session expired at %v: %w", row.ExpiresAt, ErrSessionExpired)
	}

	user := &domain.User{
		ID:             row.UserID,
		Username:       row.Username,
		Email:          row.Email,
		MembershipTier: row.MembershipTier,
	}

	span.SetAttributes(
		attribute.String("user.id", user.ID),
		attribute.Bool("session.valid", true),
	)

	return user, nil
}

// RequestPasswordReset issues a reset code for the account registered under
// email. Unknown addresses succeed silently so callers cannot enumerate
// accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req domain.ForgotPasswordRequest) error {
	ctx, span := middleware.StartSpan(ctx, "auth.password_forgot", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	row, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("query user by email: %w", err)
	}
	if row == nil {
		span.SetAttributes(attribute.Bool("user.found", false))
		return nil
	}

	code, err := s.resetCodes.Issue(row.Email)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.notifier.SendResetCode(ctx, row.Email, code); err != nil {
		span.RecordError(err)
		return fmt.Errorf("send reset code: %w", err)
	}

	span.AddEvent("password_reset.requested")
	return nil
}

// ResetPassword replaces the password after verifying the reset code.
// Each code can be tried once.
func (s *AuthService) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	ctx, span := middleware.StartSpan(ctx, "auth.password_reset", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	row, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("query user by email: %w", err)
	}
	if row == nil || !s.resetCodes.Verify(row.Email, req.Code) {
		span.SetAttributes(attribute.Bool("reset.success", false))
		return fmt.Errorf("reset password: %w", ErrInvalidOTP)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, row.ID, string(passwordHash)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("update password: %w", err)
	}

	span.SetAttributes(
		attribute.String("user.id", row.ID),
		attribute.Bool("reset.success", true),
	)
	return nil
}

// ChangeEmail moves the account to a new email address after re-checking the
// current address and password.
func (s *AuthService) ChangeEmail(ctx context.Context, userID string, req domain.ChangeEmailRequest) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.change_email", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", userID),
	))
	defer span.End()

	row, err := s.users.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user %q: %w", userID, err)
	}
	if row == nil {
		return nil, fmt.Errorf("change email for %q: %w", userID, ErrUserNotFound)
	}

	if !strings.EqualFold(row.Email, req.CurrentEmail) {
		span.SetAttributes(attribute.Bool("email_change.success", false))
		return nil, fmt.Errorf("change email for %q: %w", userID, ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(req.Password)); err != nil {
		span.SetAttributes(attribute.Bool("email_change.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("change email for %q: %w", userID, ErrInvalidCredentials)
	}

	owner, err := s.users.GetByEmail(ctx, req.NewEmail)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	if owner != nil && owner.ID != row.ID {
		span.SetAttributes(attribute.Bool("email_change.success", false))
		return nil, fmt.Errorf("change email for %q: %w", userID, ErrUserExists)
	}

	if err := s.users.UpdateEmail(ctx, row.ID, req.NewEmail); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateUser):
			return nil, fmt.Errorf("change email for %q: %w", userID, ErrUserExists)
		case errors.Is(err, domain.ErrUserNotFound):
			return nil, fmt.Errorf("change email for %q: %w", userID, ErrUserNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("update email: %w", err)
	}

	row.Email = req.NewEmail
	zerolog.Ctx(ctx).Info().Str("user_id", row.ID).Msg("Email changed")
	span.SetAttributes(attribute.Bool("email_change.success", true))

	user := toUser(row)
	return &user, nil
}

func (s *AuthService) issueSession(ctx context.Context, userID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := s.sessions.Create(ctx, userID, token, s.now().Add(s.settings.SessionTTL)); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func toUser(row *domain.UserRow) domain.User {
	return domain.User{
		ID:             row.ID,
		Username:       row.Username,
		Email:          row.Email,
		MembershipTier: row.MembershipTier,
	}
}
