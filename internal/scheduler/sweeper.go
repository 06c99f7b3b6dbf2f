// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/duynhne/mining-service/internal/core/domain"
)

// SessionSweeper periodically deletes expired auth sessions.
type SessionSweeper struct {
	sessions domain.SessionRepository
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSessionSweeper creates a sweeper that runs every interval.
func NewSessionSweeper(sessions domain.SessionRepository, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		logger:   log.With().Str("component", "session_sweeper").Logger(),
		now:      time.Now,
	}
}

// Run starts the loop until ctx is canceled.
func (s *SessionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Session sweeper stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick deletes every session that expired before now.
func (s *SessionSweeper) tick(ctx context.Context) int64 {
	deleted, err := s.sessions.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("DeleteExpired failed")
		return 0
	}
	if deleted > 0 {
		s.logger.Info().Int64("deleted", deleted).Msg("Expired sessions removed")
	}
	return deleted
}
