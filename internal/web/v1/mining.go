package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/duynhne/mining-service/internal/core/domain"
	logicv1 "github.com/duynhne/mining-service/internal/logic/v1"
	"github.com/duynhne/mining-service/internal/logger"
	"github.com/duynhne/mining-service/middleware"
)

// StartMining starts a mining session for the authenticated user.
// POST /api/v1/mining/start
func (h *Handler) StartMining(c *gin.Context) {
	h.runMining(c, "Start mining failed", h.mining.Start)
}

// MiningStatus polls the authenticated user's mining session.
// GET /api/v1/mining/status
func (h *Handler) MiningStatus(c *gin.Context) {
	h.runMining(c, "Mining status failed", h.mining.Poll)
}

func (h *Handler) runMining(c *gin.Context, failure string, op func(context.Context, string) (*domain.SessionResult, error)) {
	ctx, span := startSpan(c)
	defer span.End()

	userID := c.GetString(middleware.UserIDKey)
	span.SetAttributes(attribute.String("user.id", userID))

	result, err := op(ctx, userID)
	if err != nil {
		span.RecordError(err)
		status, msg := miningErrorStatus(err)
		event := logger.FromContext(ctx).Error()
		if status < http.StatusInternalServerError {
			event = logger.FromContext(ctx).Warn()
		}
		event.Err(err).Str("user_id", userID).Msg(failure)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	span.SetAttributes(attribute.String("mining.status", result.Status))
	c.JSON(http.StatusOK, result)
}

func miningErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, logicv1.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, logicv1.ErrConcurrentUpdate):
		return http.StatusConflict, "Mining session changed concurrently, retry"
	case errors.Is(err, logicv1.ErrTierNotFound):
		return http.StatusInternalServerError, "Membership tier not configured"
	case errors.Is(err, logicv1.ErrClockSkew):
		return http.StatusInternalServerError, "Mining session timestamps are inconsistent"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
