package v1

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/mining-service/internal/core/domain"
	"github.com/duynhne/mining-service/middleware"
)

// TierSource resolves a membership tier by name.
type TierSource interface {
	Resolve(ctx context.Context, name string) (domain.Tier, error)
}

// TierResolver looks tiers up in the repository, optionally through a
// short-lived cache. Missing or invalid tiers fail with ErrTierNotFound and
// are never cached.
type TierResolver struct {
	repo  domain.TierRepository
	cache *ttlcache.Cache[string, domain.Tier]
}

// NewTierResolver creates a resolver. A ttl of zero disables caching.
func NewTierResolver(repo domain.TierRepository, ttl time.Duration) *TierResolver {
	r := &TierResolver{repo: repo}
	if ttl > 0 {
		r.cache = ttlcache.New(
			ttlcache.WithTTL[string, domain.Tier](ttl),
			ttlcache.WithDisableTouchOnHit[string, domain.Tier](),
		)
	}
	return r
}

// Start runs the cache's expiry loop until Stop is called.
func (r *TierResolver) Start() {
	if r.cache != nil {
		go r.cache.Start()
	}
}

// Stop ends the cache's expiry loop.
func (r *TierResolver) Stop() {
	if r.cache != nil {
		r.cache.Stop()
	}
}

// Resolve returns the tier configured under name.
func (r *TierResolver) Resolve(ctx context.Context, name string) (domain.Tier, error) {
	ctx, span := middleware.StartSpan(ctx, "tier.resolve", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("tier", name),
	))
	defer span.End()

	if r.cache != nil {
		if item := r.cache.Get(name); item != nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return item.Value(), nil
		}
	}

	tier, err := r.repo.GetByName(ctx, name)
	if err != nil {
		span.RecordError(err)
		return domain.Tier{}, fmt.Errorf("query tier %q: %w", name, err)
	}
	if tier == nil {
		span.SetAttributes(attribute.Bool("tier.found", false))
		return domain.Tier{}, fmt.Errorf("resolve tier %q: %w", name, ErrTierNotFound)
	}
	if err := tier.Validate(); err != nil {
		span.RecordError(err)
		return domain.Tier{}, fmt.Errorf("resolve tier %q: %w: %v", name, ErrTierNotFound, err)
	}

	if r.cache != nil {
		r.cache.Set(name, *tier, ttlcache.DefaultTTL)
	}
	return *tier, nil
}

// EnsureTier stores tier if no tier with its name exists yet and reports
// whether it was created.
func (r *TierResolver) EnsureTier(ctx context.Context, tier domain.Tier) (bool, error) {
	if err := tier.Validate(); err != nil {
		return false, err
	}
	existing, err := r.repo.GetByName(ctx, tier.Name)
	if err != nil {
		return false, fmt.Errorf("query tier %q: %w", tier.Name, err)
	}
	if existing != nil {
		return false, nil
	}
	if err := r.repo.Upsert(ctx, tier); err != nil {
		return false, fmt.Errorf("seed tier %q: %w", tier.Name, err)
	}
	return true, nil
}
