// Package memory implements the domain repositories in process memory for
// development and testing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/duynhne/mining-service/internal/core/domain"
)

// DB holds every collection behind a single mutex.
type DB struct {
	mu       sync.Mutex
	users    map[string]domain.UserRow
	sessions map[string]session
	tiers    map[string]domain.Tier
	mining   map[string]*domain.MiningSession
}

type session struct {
	userID    string
	expiresAt time.Time
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		users:    make(map[string]domain.UserRow),
		sessions: make(map[string]session),
		tiers:    make(map[string]domain.Tier),
		mining:   make(map[string]*domain.MiningSession),
	}
}

// Ensure interfaces are met.
var (
	_ domain.UserRepository    = (*UserRepo)(nil)
	_ domain.SessionRepository = (*SessionRepo)(nil)
	_ domain.TierRepository    = (*TierRepo)(nil)
	_ domain.MiningRepository  = (*MiningRepo)(nil)
)

// Users returns the user repository view of db.
func (db *DB) Users() *UserRepo { return &UserRepo{db: db} }

// Sessions returns the auth session repository view of db.
func (db *DB) Sessions() *SessionRepo { return &SessionRepo{db: db} }

// Tiers returns the tier repository view of db.
func (db *DB) Tiers() *TierRepo { return &TierRepo{db: db} }

// Mining returns the mining session repository view of db.
func (db *DB) Mining() *MiningRepo { return &MiningRepo{db: db} }

// --- UserRepository ---

// UserRepo implements domain.UserRepository.
type UserRepo struct{ db *DB }

func (r *UserRepo) GetByID(_ context.Context, id string) (*domain.UserRow, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if u, ok := r.db.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*domain.UserRow, error) {
	return r.find(func(u domain.UserRow) bool { return u.Username == username }), nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.UserRow, error) {
	return r.find(func(u domain.UserRow) bool { return u.Email == email }), nil
}

func (r *UserRepo) find(match func(domain.UserRow) bool) *domain.UserRow {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if match(u) {
			return &u
		}
	}
	return nil
}

func (r *UserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	u := r.find(func(u domain.UserRow) bool { return u.Username == username || u.Email == email })
	return u != nil, nil
}

func (r *UserRepo) Create(_ context.Context, user domain.UserRow) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if u.ID == user.ID || u.Username == user.Username || u.Email == user.Email {
			return domain.ErrDuplicateUser
		}
	}
	user.CreatedAt = user.CreatedAt.UTC()
	r.db.users[user.ID] = user
	return nil
}

func (r *UserRepo) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	return r.update(userID, func(u *domain.UserRow) {
		t := at.UTC()
		u.LastLogin = &t
	})
}

func (r *UserRepo) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	return r.update(userID, func(u *domain.UserRow) { u.PasswordHash = passwordHash })
}

func (r *UserRepo) UpdateEmail(_ context.Context, userID, email string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	for id, other := range r.db.users {
		if id != userID && other.Email == email {
			return domain.ErrDuplicateUser
		}
	}
	u.Email = email
	r.db.users[userID] = u
	return nil
}

// SetMembershipTier changes a user's tier. Membership management is an
// external concern; this exists for development seeding and tests.
func (r *UserRepo) SetMembershipTier(userID, tier string) error {
	return r.update(userID, func(u *domain.UserRow) { u.MembershipTier = tier })
}

func (r *UserRepo) update(userID string, fn func(*domain.UserRow)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	fn(&u)
	r.db.users[userID] = u
	return nil
}

// --- SessionRepository ---

// SessionRepo implements domain.SessionRepository.
type SessionRepo struct{ db *DB }

func (r *SessionRepo) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = session{userID: userID, expiresAt: expiresAt.UTC()}
	return nil
}

func (r *SessionRepo) GetUserByToken(_ context.Context, token string) (*domain.SessionRow, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[token]
	if !ok {
		return nil, nil
	}
	u, ok := r.db.users[s.userID]
	if !ok {
		return nil, nil
	}
	return &domain.SessionRow{
		UserID:         u.ID,
		Username:       u.Username,
		Email:          u.Email,
		MembershipTier: u.MembershipTier,
		ExpiresAt:      s.expiresAt,
	}, nil
}

func (r *SessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for token, s := range r.db.sessions {
		if s.expiresAt.Before(now) {
			delete(r.db.sessions, token)
			n++
		}
	}
	return n, nil
}

// --- TierRepository ---

// TierRepo implements domain.TierRepository.
type TierRepo struct{ db *DB }

func (r *TierRepo) GetByName(_ context.Context, name string) (*domain.Tier, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if t, ok := r.db.tiers[name]; ok {
		return &t, nil
	}
	return nil, nil
}

func (r *TierRepo) Upsert(_ context.Context, tier domain.Tier) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.tiers[tier.Name] = tier
	return nil
}

// Delete removes a tier, simulating a membership record deleted elsewhere.
func (r *TierRepo) Delete(name string) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	delete(r.db.tiers, name)
}

// --- MiningRepository ---

// MiningRepo implements domain.MiningRepository with the same
// compare-and-swap semantics as the database-backed stores.
type MiningRepo struct{ db *DB }

func (r *MiningRepo) Get(_ context.Context, userID string) (*domain.MiningSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.mining[userID]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (r *MiningRepo) Save(_ context.Context, s *domain.MiningSession, expectedVersion int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.mining[s.UserID]
	switch {
	case expectedVersion == 0 && ok:
		return domain.ErrVersionConflict
	case expectedVersion != 0 && (!ok || current.Version != expectedVersion):
		return domain.ErrVersionConflict
	}
	r.db.mining[s.UserID] = s.Clone()
	return nil
}
