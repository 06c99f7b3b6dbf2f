package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/mining-service/internal/core/domain"
	logicv1 "github.com/duynhne/mining-service/internal/logic/v1"
	"github.com/duynhne/mining-service/internal/logger"
	"github.com/duynhne/mining-service/middleware"
)

// AuthAPI is the authentication logic the handlers call.
type AuthAPI interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error)
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error)
	GetUserByToken(ctx context.Context, token string) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, req domain.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
	ChangeEmail(ctx context.Context, userID string, req domain.ChangeEmailRequest) (*domain.User, error)
}

// MiningAPI is the mining session logic the handlers call.
type MiningAPI interface {
	Start(ctx context.Context, userID string) (*domain.SessionResult, error)
	Poll(ctx context.Context, userID string) (*domain.SessionResult, error)
}

// Handler groups HTTP handlers for API v1.
// Dependencies are injected via the constructor, no global state.
type Handler struct {
	auth   AuthAPI
	mining MiningAPI
	tiers  logicv1.TierSource
}

// NewHandler creates a new Handler.
func NewHandler(auth AuthAPI, mining MiningAPI, tiers logicv1.TierSource) *Handler {
	return &Handler{auth: auth, mining: mining, tiers: tiers}
}

// RegisterRoutes registers all API v1 routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.Login)
	rg.POST("/auth/register", h.Register)
	rg.POST("/auth/password/forgot", h.ForgotPassword)
	rg.POST("/auth/password/reset", h.ResetPassword)
	rg.GET("/auth/me", h.GetMe)
	rg.POST("/auth/email", h.RequireAuth(), h.ChangeEmail)

	rg.GET("/tiers/:name", h.GetTier)

	mining := rg.Group("/mining", h.RequireAuth())
	mining.POST("/start", h.StartMining)
	mining.GET("/status", h.MiningStatus)
}

func startSpan(c *gin.Context) (context.Context, trace.Span) {
	return middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
}

// Login handles HTTP request for user login.
func (h *Handler) Login(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	log := logger.FromContext(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		log.Error().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.Bool("request.valid", true))

	response, err := h.auth.Login(ctx, req)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("Login failed")

		switch {
		case errors.Is(err, logicv1.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		case errors.Is(err, logicv1.ErrUserNotFound):
			// Don't reveal that user doesn't exist
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	log.Info().Str("user_id", response.User.ID).Msg("Login successful")
	c.JSON(http.StatusOK, response)
}

// Register handles HTTP request for user registration.
func (h *Handler) Register(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	log := logger.FromContext(ctx)

	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		log.Error().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.Bool("request.valid", true))

	response, err := h.auth.Register(ctx, req)
	if err != nil {
		span.RecordError(err)
		log.Error().
			Err(err).
			Str("username", req.Username).
			Msg("Registration failed")

		switch {
		case errors.Is(err, logicv1.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	log.Info().Str("user_id", response.User.ID).Msg("Registration successful")
	c.JSON(http.StatusCreated, response)
}

// GetMe returns the user owning the bearer token.
// GET /api/v1/auth/me
// Authorization: Bearer <token>
func (h *Handler) GetMe(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	user, ok := h.authenticate(ctx, c, span)
	if !ok {
		return
	}

	logger.FromContext(ctx).Info().Str("user_id", user.ID).Msg("Token validated")
	c.JSON(http.StatusOK, user)
}

// ForgotPassword issues a reset code. It answers 202 whether or not the
// address is registered.
func (h *Handler) ForgotPassword(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	log := logger.FromContext(ctx)

	var req domain.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.RequestPasswordReset(ctx, req); err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("Password reset request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "If the address is registered, a reset code has been sent"})
}

// ResetPassword sets a new password given a valid reset code.
func (h *Handler) ResetPassword(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	log := logger.FromContext(ctx)

	var req domain.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.ResetPassword(ctx, req); err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrInvalidOTP):
			log.Warn().Err(err).Msg("Password reset rejected")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset code"})
		default:
			log.Error().Err(err).Msg("Password reset failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// ChangeEmail moves the caller's account to a new email address.
// POST /api/v1/auth/email
// Authorization: Bearer <token>
func (h *Handler) ChangeEmail(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	log := logger.FromContext(ctx)

	var req domain.ChangeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString(middleware.UserIDKey)
	user, err := h.auth.ChangeEmail(ctx, userID, req)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrInvalidCredentials):
			log.Warn().Err(err).Str("user_id", userID).Msg("Email change rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		case errors.Is(err, logicv1.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
		case errors.Is(err, logicv1.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		default:
			log.Error().Err(err).Str("user_id", userID).Msg("Email change failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	log.Info().Str("user_id", user.ID).Msg("Email changed")
	c.JSON(http.StatusOK, user)
}

// GetTier returns a membership tier definition.
func (h *Handler) GetTier(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	tier, err := h.tiers.Resolve(ctx, c.Param("name"))
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, logicv1.ErrTierNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tier not found"})
			return
		}
		logger.FromContext(ctx).Error().Err(err).Msg("Tier lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, tier)
}
