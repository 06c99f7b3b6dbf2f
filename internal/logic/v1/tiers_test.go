package v1_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/duynhne/mining-service/internal/core/domain"
	logicv1 "github.com/duynhne/mining-service/internal/logic/v1"
)

type mockTierRepo struct {
	getFn    func(ctx context.Context, name string) (*domain.Tier, error)
	upsertFn func(ctx context.Context, tier domain.Tier) error
	gets     int
}

func (m *mockTierRepo) GetByName(ctx context.Context, name string) (*domain.Tier, error) {
	m.gets++
	if m.getFn != nil {
		return m.getFn(ctx, name)
	}
	return nil, nil
}

func (m *mockTierRepo) Upsert(ctx context.Context, tier domain.Tier) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, tier)
	}
	return nil
}

func TestTierResolver_CachesHits(t *testing.T) {
	repo := &mockTierRepo{
		getFn: func(_ context.Context, _ string) (*domain.Tier, error) {
			tier := goldTier
			return &tier, nil
		},
	}
	r := logicv1.NewTierResolver(repo, time.Minute)

	for i := 0; i < 3; i++ {
		tier, err := r.Resolve(context.Background(), "gold")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if tier != goldTier {
			t.Fatalf("Resolve = %+v, want %+v", tier, goldTier)
		}
	}
	if repo.gets != 1 {
		t.Fatalf("repository reads = %d, want 1", repo.gets)
	}
}

func TestTierResolver_NoCache(t *testing.T) {
	repo := &mockTierRepo{
		getFn: func(_ context.Context, _ string) (*domain.Tier, error) {
			tier := goldTier
			return &tier, nil
		},
	}
	r := logicv1.NewTierResolver(repo, 0)
	r.Start()
	defer r.Stop()

	for i := 0; i < 2; i++ {
		if _, err := r.Resolve(context.Background(), "gold"); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if repo.gets != 2 {
		t.Fatalf("repository reads = %d, want 2", repo.gets)
	}
}

func TestTierResolver_Errors(t *testing.T) {
	dbErr := errors.New("connection reset")

	tests := []struct {
		name    string
		getFn   func(context.Context, string) (*domain.Tier, error)
		wantErr error
	}{
		{
			name:    "missing",
			getFn:   func(context.Context, string) (*domain.Tier, error) { return nil, nil },
			wantErr: logicv1.ErrTierNotFound,
		},
		{
			name: "zero rate",
			getFn: func(context.Context, string) (*domain.Tier, error) {
				return &domain.Tier{Name: "broken", SessionDurationSeconds: 60}, nil
			},
			wantErr: logicv1.ErrTierNotFound,
		},
		{
			name:    "repository failure",
			getFn:   func(context.Context, string) (*domain.Tier, error) { return nil, dbErr },
			wantErr: dbErr,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockTierRepo{getFn: tc.getFn}
			r := logicv1.NewTierResolver(repo, time.Minute)

			for i := 0; i < 2; i++ {
				if _, err := r.Resolve(context.Background(), "x"); !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
			}
			if repo.gets != 2 {
				t.Fatalf("failures must not be cached: reads = %d, want 2", repo.gets)
			}
		})
	}
}

func TestEnsureTier(t *testing.T) {
	var upserts []domain.Tier
	stored := map[string]domain.Tier{}
	repo := &mockTierRepo{
		getFn: func(_ context.Context, name string) (*domain.Tier, error) {
			if tier, ok := stored[name]; ok {
				return &tier, nil
			}
			return nil, nil
		},
		upsertFn: func(_ context.Context, tier domain.Tier) error {
			upserts = append(upserts, tier)
			stored[tier.Name] = tier
			return nil
		},
	}
	r := logicv1.NewTierResolver(repo, 0)

	created, err := r.EnsureTier(context.Background(), domain.DefaultTier)
	if err != nil || !created {
		t.Fatalf("EnsureTier = %v, %v; want true, nil", created, err)
	}
	created, err = r.EnsureTier(context.Background(), domain.DefaultTier)
	if err != nil || created {
		t.Fatalf("second EnsureTier = %v, %v; want false, nil", created, err)
	}
	if len(upserts) != 1 {
		t.Fatalf("upserts = %d, want 1", len(upserts))
	}

	if _, err := r.EnsureTier(context.Background(), domain.Tier{Name: "bad"}); err == nil {
		t.Fatal("EnsureTier accepted an invalid tier")
	}
}
