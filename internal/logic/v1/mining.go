package v1

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/mining-service/internal/core/domain"
	"github.com/duynhne/mining-service/middleware"
)

// Clock returns the current instant. Tests inject a fixed clock.
type Clock func() time.Time

// MiningEngine starts and polls per-user mining sessions.
// Each call that changes state performs exactly one conditional write;
// a concurrent modification surfaces as ErrConcurrentUpdate.
type MiningEngine struct {
	users    domain.UserRepository
	sessions domain.MiningRepository
	tiers    TierSource
	now      Clock
}

// NewMiningEngine creates an engine. A nil clock means time.Now.
func NewMiningEngine(users domain.UserRepository, sessions domain.MiningRepository, tiers TierSource, clock Clock) *MiningEngine {
	if clock == nil {
		clock = time.Now
	}
	return &MiningEngine{
		users:    users,
		sessions: sessions,
		tiers:    tiers,
		now:      clock,
	}
}

// Start begins a mining session for userID. A running session is reported
// as already in progress without any write; an expired one is settled and
// replaced by the new session in the same write.
func (e *MiningEngine) Start(ctx context.Context, userID string) (*domain.SessionResult, error) {
	ctx, span := middleware.StartSpan(ctx, "mining.start", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", userID),
	))
	defer span.End()

	user, current, err := e.load(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("start mining for %q: %w", userID, err)
	}

	now := e.now()
	next := domain.NewMiningSession(userID)
	var expected int64
	if current != nil {
		next = current.Clone()
		expected = current.Version
	}

	var settled int64
	switch next.State(now) {
	case domain.MiningActive:
		span.SetAttributes(attribute.String("mining.status", domain.StatusAlreadyInProgress))
		return &domain.SessionResult{
			Status:       domain.StatusAlreadyInProgress,
			AccruedCoins: current.AccruedCoins,
			SessionStart: current.SessionStart,
			SessionEnd:   current.SessionEnd,
		}, nil
	case domain.MiningExpired:
		settled = next.Settle()
	}

	tier, err := e.tiers.Resolve(ctx, user.MembershipTier)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("start mining for %q: %w", userID, err)
	}
	next.Begin(now, tier)

	if err := e.save(ctx, "start", next, expected); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("start mining for %q: %w", userID, err)
	}

	if settled > 0 {
		miningSessionsSettled.Inc()
		coinsCredited.WithLabelValues(sourceMining).Add(float64(settled))
	}
	miningSessionsStarted.Inc()

	zerolog.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("tier", tier.Name).
		Float64("coins_per_second", tier.CoinsPerSecond).
		Time("session_end", *next.SessionEnd).
		Int64("settled_coins", settled).
		Msg("Mining session started")

	span.SetAttributes(attribute.String("mining.status", domain.StatusStarted))
	return &domain.SessionResult{
		Status:       domain.StatusStarted,
		AccruedCoins: next.AccruedCoins,
		SessionStart: next.SessionStart,
		SessionEnd:   next.SessionEnd,
	}, nil
}

// Poll reports the session status for userID, crediting coins mined since
// the last poll. An expired session is settled exactly once for its full
// duration and cleared.
func (e *MiningEngine) Poll(ctx context.Context, userID string) (*domain.SessionResult, error) {
	ctx, span := middleware.StartSpan(ctx, "mining.poll", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", userID),
	))
	defer span.End()

	_, current, err := e.load(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("poll mining for %q: %w", userID, err)
	}
	if current == nil {
		return &domain.SessionResult{Status: domain.StatusNotStarted}, nil
	}

	now := e.now()
	next := current.Clone()

	switch next.State(now) {
	case domain.MiningIdle:
		return &domain.SessionResult{
			Status:       domain.StatusNotStarted,
			AccruedCoins: current.AccruedCoins,
		}, nil

	case domain.MiningActive:
		credited, err := next.Accrue(now)
		if errors.Is(err, domain.ErrNegativeElapsed) {
			clockSkewEvents.Inc()
			zerolog.Ctx(ctx).Error().
				Str("user_id", userID).
				Time("session_start", *current.SessionStart).
				Time("now", now).
				Msg("Current time precedes mining session start")
			err = fmt.Errorf("poll mining for %q: %w", userID, ErrClockSkew)
			span.RecordError(err)
			return nil, err
		}
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("poll mining for %q: %w", userID, err)
		}
		if credited > 0 {
			if err := e.save(ctx, "poll", next, current.Version); err != nil {
				span.RecordError(err)
				return nil, fmt.Errorf("poll mining for %q: %w", userID, err)
			}
			coinsCredited.WithLabelValues(sourceMining).Add(float64(credited))
		}
		span.SetAttributes(attribute.String("mining.status", domain.StatusInProgress))
		return &domain.SessionResult{
			Status:       domain.StatusInProgress,
			AccruedCoins: next.AccruedCoins,
			SessionStart: next.SessionStart,
			SessionEnd:   next.SessionEnd,
		}, nil

	default:
		start, end := current.SessionStart, current.SessionEnd
		credited := next.Settle()
		if err := e.save(ctx, "settle", next, current.Version); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("poll mining for %q: %w", userID, err)
		}
		miningSessionsSettled.Inc()
		coinsCredited.WithLabelValues(sourceMining).Add(float64(credited))

		zerolog.Ctx(ctx).Info().
			Str("user_id", userID).
			Int64("credited_coins", credited).
			Int64("accrued_coins", next.AccruedCoins).
			Msg("Mining session settled")

		span.SetAttributes(attribute.String("mining.status", domain.StatusEnded))
		return &domain.SessionResult{
			Status:       domain.StatusEnded,
			AccruedCoins: next.AccruedCoins,
			SessionStart: start,
			SessionEnd:   end,
		}, nil
	}
}

// load fetches the user and their mining record. The record is nil when the
// user has never mined.
func (e *MiningEngine) load(ctx context.Context, userID string) (*domain.UserRow, *domain.MiningSession, error) {
	return loadMiningRecord(ctx, e.users, e.sessions, userID)
}

func (e *MiningEngine) save(ctx context.Context, op string, next *domain.MiningSession, expected int64) error {
	return saveMiningRecord(ctx, e.sessions, op, next, expected)
}

func loadMiningRecord(ctx context.Context, users domain.UserRepository, sessions domain.MiningRepository, userID string) (*domain.UserRow, *domain.MiningSession, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("query user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}
	current, err := sessions.Get(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("query mining session: %w", err)
	}
	return user, current, nil
}

func saveMiningRecord(ctx context.Context, sessions domain.MiningRepository, op string, next *domain.MiningSession, expected int64) error {
	next.Version = expected + 1
	err := sessions.Save(ctx, next, expected)
	if errors.Is(err, domain.ErrVersionConflict) {
		concurrentUpdates.WithLabelValues(op).Inc()
		zerolog.Ctx(ctx).Warn().
			Str("user_id", next.UserID).
			Str("operation", op).
			Int64("expected_version", expected).
			Msg("Mining record changed since read")
		return ErrConcurrentUpdate
	}
	if err != nil {
		return fmt.Errorf("save mining session: %w", err)
	}
	return nil
}
