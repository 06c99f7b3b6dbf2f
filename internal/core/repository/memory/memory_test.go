package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/duynhne/mining-service/internal/core/domain"
)

func TestUserRepository(t *testing.T) {
	users := New().Users()
	ctx := context.Background()

	err := users.Create(ctx, domain.UserRow{ID: "u1", Username: "alice", Email: "alice@example.com", MembershipTier: "free"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := users.Create(ctx, domain.UserRow{ID: "u2", Username: "alice", Email: "other@example.com"}); !errors.Is(err, domain.ErrDuplicateUser) {
		t.Fatalf("duplicate username err = %v, want ErrDuplicateUser", err)
	}

	u, err := users.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u == nil || u.ID != "u1" {
		t.Fatalf("failed to retrieve user, got %+v", u)
	}

	exists, _ := users.ExistsByUsernameOrEmail(ctx, "bob", "alice@example.com")
	if !exists {
		t.Error("expected exists=true on email match")
	}

	missing, err := users.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for unknown id, got (%v, %v)", missing, err)
	}

	now := time.Now()
	_ = users.UpdateLastLogin(ctx, "u1", now)
	_ = users.UpdatePassword(ctx, "u1", "new-hash")
	u, _ = users.GetByID(ctx, "u1")
	if u.LastLogin == nil || !u.LastLogin.Equal(now) || u.PasswordHash != "new-hash" {
		t.Errorf("updates not applied: %+v", u)
	}
	if err := users.UpdatePassword(ctx, "nope", "hash"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("UpdatePassword unknown user err = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_UpdateEmail(t *testing.T) {
	users := New().Users()
	ctx := context.Background()
	_ = users.Create(ctx, domain.UserRow{ID: "u1", Username: "alice", Email: "alice@example.com"})
	_ = users.Create(ctx, domain.UserRow{ID: "u2", Username: "bob", Email: "bob@example.com"})

	tests := []struct {
		name    string
		userID  string
		email   string
		wantErr error
	}{
		{"taken by another user", "u1", "bob@example.com", domain.ErrDuplicateUser},
		{"unknown user", "u9", "new@example.com", domain.ErrUserNotFound},
		{"same address", "u1", "alice@example.com", nil},
		{"free address", "u1", "alice@new.example", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := users.UpdateEmail(ctx, tc.userID, tc.email); !errors.Is(err, tc.wantErr) {
				t.Fatalf("UpdateEmail err = %v, want %v", err, tc.wantErr)
			}
		})
	}

	u, _ := users.GetByEmail(ctx, "alice@new.example")
	if u == nil || u.ID != "u1" {
		t.Fatalf("email not updated, got %+v", u)
	}
}

func TestSessionRepository(t *testing.T) {
	db := New()
	ctx := context.Background()
	_ = db.Users().Create(ctx, domain.UserRow{ID: "u1", Username: "alice", Email: "a@example.com", MembershipTier: "gold"})

	sessions := db.Sessions()
	now := time.Now()
	_ = sessions.Create(ctx, "u1", "live", now.Add(time.Hour))
	_ = sessions.Create(ctx, "u1", "stale", now.Add(-time.Hour))

	row, err := sessions.GetUserByToken(ctx, "live")
	if err != nil {
		t.Fatalf("GetUserByToken: %v", err)
	}
	if row == nil || row.UserID != "u1" || row.MembershipTier != "gold" {
		t.Fatalf("unexpected row: %+v", row)
	}

	n, err := sessions.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired session removed, got %d", n)
	}
	if row, _ := sessions.GetUserByToken(ctx, "stale"); row != nil {
		t.Error("expected stale session to be gone")
	}
}

func TestTierRepository(t *testing.T) {
	tiers := New().Tiers()
	ctx := context.Background()

	if tier, err := tiers.GetByName(ctx, "free"); tier != nil || err != nil {
		t.Fatalf("expected (nil, nil) before seeding, got (%v, %v)", tier, err)
	}
	_ = tiers.Upsert(ctx, domain.DefaultTier)
	tier, _ := tiers.GetByName(ctx, "free")
	if tier == nil || tier.SessionDurationSeconds != 86400 {
		t.Fatalf("unexpected tier: %+v", tier)
	}

	tiers.Delete("free")
	if tier, _ := tiers.GetByName(ctx, "free"); tier != nil {
		t.Fatal("expected tier to be deleted")
	}
}

func TestMiningRepository_CompareAndSwap(t *testing.T) {
	mining := New().Mining()
	ctx := context.Background()

	s := domain.NewMiningSession("u1")
	s.Version = 1
	if err := mining.Save(ctx, s, 0); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mining.Save(ctx, s, 0); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected conflict on second insert, got %v", err)
	}

	next := s.Clone()
	next.AccruedCoins = 10
	next.Version = 2
	if err := mining.Save(ctx, next, 1); err != nil {
		t.Fatalf("update: %v", err)
	}

	stale := s.Clone()
	stale.AccruedCoins = 99
	stale.Version = 2
	if err := mining.Save(ctx, stale, 1); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected conflict on stale update, got %v", err)
	}

	got, _ := mining.Get(ctx, "u1")
	if got.AccruedCoins != 10 || got.Version != 2 {
		t.Fatalf("unexpected stored session: %+v", got)
	}
}

func TestMiningRepository_GetReturnsCopy(t *testing.T) {
	mining := New().Mining()
	ctx := context.Background()

	s := domain.NewMiningSession("u1")
	s.Version = 1
	_ = mining.Save(ctx, s, 0)

	got, _ := mining.Get(ctx, "u1")
	got.AccruedCoins = 500

	again, _ := mining.Get(ctx, "u1")
	if again.AccruedCoins != 0 {
		t.Fatal("mutating a returned session leaked into the store")
	}
}
