package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/mining-service/internal/core/domain"
	logicv1 "github.com/duynhne/mining-service/internal/logic/v1"
	"github.com/duynhne/mining-service/internal/logger"
	"github.com/duynhne/mining-service/middleware"
)

const bearerPrefix = "Bearer "

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's user id under middleware.UserIDKey.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := middleware.StartSpan(c.Request.Context(), "http.authenticate", trace.WithAttributes(
			attribute.String("layer", "web"),
		))
		user, ok := h.authenticate(ctx, c, span)
		span.End()
		if !ok {
			c.Abort()
			return
		}
		c.Set(middleware.UserIDKey, user.ID)
		c.Next()
	}
}

// authenticate resolves the bearer token on c. On failure it writes the 401
// response and returns false.
func (h *Handler) authenticate(ctx context.Context, c *gin.Context, span trace.Span) (*domain.User, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		span.SetAttributes(attribute.Bool("auth.present", false))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		return nil, false
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) || len(authHeader) == len(bearerPrefix) {
		span.SetAttributes(attribute.Bool("auth.valid_format", false))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
		return nil, false
	}
	token := authHeader[len(bearerPrefix):]

	span.SetAttributes(attribute.Bool("auth.present", true))

	user, err := h.auth.GetUserByToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		logger.FromContext(ctx).Warn().Err(err).Msg("Token lookup failed")

		switch {
		case errors.Is(err, logicv1.ErrSessionNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		case errors.Is(err, logicv1.ErrSessionExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return nil, false
	}
	return user, true
}
