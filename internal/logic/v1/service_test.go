package v1_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/duynhne/mining-service/internal/core/domain"
	"github.com/duynhne/mining-service/internal/core/repository/memory"
	logicv1 "github.com/duynhne/mining-service/internal/logic/v1"
	"github.com/duynhne/mining-service/internal/otp"
)

type mockRewards struct {
	onLoginFn func(ctx context.Context, userID string) (*domain.DailyReward, error)
	calls     []string
}

func (m *mockRewards) OnLogin(ctx context.Context, userID string) (*domain.DailyReward, error) {
	m.calls = append(m.calls, userID)
	if m.onLoginFn != nil {
		return m.onLoginFn(ctx, userID)
	}
	return &domain.DailyReward{}, nil
}

type captureNotifier struct {
	sent map[string]string
}

func (n *captureNotifier) SendResetCode(_ context.Context, email, code string) error {
	if n.sent == nil {
		n.sent = map[string]string{}
	}
	n.sent[email] = code
	return nil
}

type authFixture struct {
	db       *memory.DB
	rewards  *mockRewards
	notifier *captureNotifier
	svc      *logicv1.AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		db:       memory.New(),
		rewards:  &mockRewards{},
		notifier: &captureNotifier{},
	}
	f.svc = logicv1.NewAuthService(
		f.db.Users(), f.db.Sessions(), f.rewards, otp.NewStore(time.Minute), f.notifier,
		logicv1.AuthSettings{DefaultTier: "free", SessionTTL: time.Hour},
	)
	return f
}

func (f *authFixture) register(t *testing.T) *domain.AuthResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return resp
}

func TestRegister(t *testing.T) {
	f := newAuthFixture()
	resp := f.register(t)

	if resp.Token == "" || resp.User.ID == "" {
		t.Fatalf("Register = %+v, want token and id", resp)
	}
	if resp.User.MembershipTier != "free" {
		t.Fatalf("MembershipTier = %q, want free", resp.User.MembershipTier)
	}

	user, err := f.svc.GetUserByToken(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("GetUserByToken: %v", err)
	}
	if user.ID != resp.User.ID {
		t.Fatalf("token resolves to %q, want %q", user.ID, resp.User.ID)
	}

	_, err = f.svc.Register(context.Background(), domain.RegisterRequest{
		Username: "alice", Email: "other@example.com", Password: "whatever1",
	})
	if !errors.Is(err, logicv1.ErrUserExists) {
		t.Fatalf("duplicate Register err = %v, want ErrUserExists", err)
	}
}

// barrierUsers holds every existence check until n callers have passed it,
// so concurrent registrations all reach Create.
type barrierUsers struct {
	domain.UserRepository
	ready sync.WaitGroup
}

func (u *barrierUsers) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	exists, err := u.UserRepository.ExistsByUsernameOrEmail(ctx, username, email)
	u.ready.Done()
	u.ready.Wait()
	return exists, err
}

func TestRegister_ConcurrentDuplicate(t *testing.T) {
	db := memory.New()
	racing := &barrierUsers{UserRepository: db.Users()}
	racing.ready.Add(2)
	svc := logicv1.NewAuthService(
		racing, db.Sessions(), nil, otp.NewStore(time.Minute), &captureNotifier{},
		logicv1.AuthSettings{DefaultTier: "free", SessionTTL: time.Hour},
	)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(context.Background(), domain.RegisterRequest{
				Username: "alice", Email: "alice@example.com", Password: "correct-horse",
			})
		}(i)
	}
	wg.Wait()

	var created, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, logicv1.ErrUserExists):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 || duplicates != 1 {
		t.Fatalf("created = %d, duplicates = %d; want 1 and 1", created, duplicates)
	}
}

func TestLogin(t *testing.T) {
	f := newAuthFixture()
	registered := f.register(t)
	f.rewards.onLoginFn = func(context.Context, string) (*domain.DailyReward, error) {
		return &domain.DailyReward{Granted: true, AccruedCoins: 100}, nil
	}

	resp, err := f.svc.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.User.ID != registered.User.ID {
		t.Fatalf("Login user = %q, want %q", resp.User.ID, registered.User.ID)
	}
	if resp.DailyReward == nil || !resp.DailyReward.Granted || resp.DailyReward.AccruedCoins != 100 {
		t.Fatalf("DailyReward = %+v, want granted with 100", resp.DailyReward)
	}
	if len(f.rewards.calls) != 1 || f.rewards.calls[0] != registered.User.ID {
		t.Fatalf("OnLogin calls = %v", f.rewards.calls)
	}
}

func TestLogin_Failures(t *testing.T) {
	f := newAuthFixture()
	f.register(t)

	tests := []struct {
		name    string
		req     domain.LoginRequest
		wantErr error
	}{
		{"unknown user", domain.LoginRequest{Username: "bob", Password: "correct-horse"}, logicv1.ErrUserNotFound},
		{"wrong password", domain.LoginRequest{Username: "alice", Password: "wrong"}, logicv1.ErrInvalidCredentials},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
	if len(f.rewards.calls) != 0 {
		t.Fatalf("OnLogin called on failed login: %v", f.rewards.calls)
	}
}

func TestLogin_RewardFailureDoesNotFailLogin(t *testing.T) {
	f := newAuthFixture()
	f.register(t)
	f.rewards.onLoginFn = func(context.Context, string) (*domain.DailyReward, error) {
		return nil, logicv1.ErrTierNotFound
	}

	resp, err := f.svc.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.DailyReward != nil {
		t.Fatalf("DailyReward = %+v, want nil", resp.DailyReward)
	}
}

func TestGetUserByToken_Unknown(t *testing.T) {
	f := newAuthFixture()
	if _, err := f.svc.GetUserByToken(context.Background(), "nope"); !errors.Is(err, logicv1.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestGetUserByToken_Expired(t *testing.T) {
	f := newAuthFixture()
	resp := f.register(t)
	if err := f.db.Sessions().Create(context.Background(), resp.User.ID, "stale", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Create session: %v", err)
	}
	if _, err := f.svc.GetUserByToken(context.Background(), "stale"); !errors.Is(err, logicv1.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
}

func TestPasswordReset(t *testing.T) {
	f := newAuthFixture()
	f.register(t)
	ctx := context.Background()

	if err := f.svc.RequestPasswordReset(ctx, domain.ForgotPasswordRequest{Email: "alice@example.com"}); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	code, ok := f.notifier.sent["alice@example.com"]
	if !ok {
		t.Fatal("no code delivered")
	}

	err := f.svc.ResetPassword(ctx, domain.ResetPasswordRequest{
		Email: "alice@example.com", Code: code, NewPassword: "battery-staple",
	})
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	if _, err := f.svc.Login(ctx, domain.LoginRequest{Username: "alice", Password: "battery-staple"}); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
	if _, err := f.svc.Login(ctx, domain.LoginRequest{Username: "alice", Password: "correct-horse"}); !errors.Is(err, logicv1.ErrInvalidCredentials) {
		t.Fatalf("old password err = %v, want ErrInvalidCredentials", err)
	}

	err = f.svc.ResetPassword(ctx, domain.ResetPasswordRequest{
		Email: "alice@example.com", Code: code, NewPassword: "another-one",
	})
	if !errors.Is(err, logicv1.ErrInvalidOTP) {
		t.Fatalf("reused code err = %v, want ErrInvalidOTP", err)
	}
}

func TestPasswordReset_UnknownEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if err := f.svc.RequestPasswordReset(ctx, domain.ForgotPasswordRequest{Email: "nobody@example.com"}); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("code sent for unknown address: %v", f.notifier.sent)
	}

	err := f.svc.ResetPassword(ctx, domain.ResetPasswordRequest{
		Email: "nobody@example.com", Code: "123456", NewPassword: "whatever1",
	})
	if !errors.Is(err, logicv1.ErrInvalidOTP) {
		t.Fatalf("err = %v, want ErrInvalidOTP", err)
	}
}

func TestChangeEmail(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		userID    func(resp *domain.AuthResponse) string
		req       domain.ChangeEmailRequest
		wantErr   error
		wantEmail string
	}{
		{
			name:      "success",
			req:       domain.ChangeEmailRequest{CurrentEmail: "alice@example.com", NewEmail: "alice@new.example", Password: "correct-horse"},
			wantEmail: "alice@new.example",
		},
		{
			name:      "current email case-insensitive",
			req:       domain.ChangeEmailRequest{CurrentEmail: "Alice@Example.com", NewEmail: "alice@new.example", Password: "correct-horse"},
			wantEmail: "alice@new.example",
		},
		{
			name:    "wrong password",
			req:     domain.ChangeEmailRequest{CurrentEmail: "alice@example.com", NewEmail: "alice@new.example", Password: "wrong"},
			wantErr: logicv1.ErrInvalidCredentials,
		},
		{
			name:    "wrong current email",
			req:     domain.ChangeEmailRequest{CurrentEmail: "someone@example.com", NewEmail: "alice@new.example", Password: "correct-horse"},
			wantErr: logicv1.ErrInvalidCredentials,
		},
		{
			name:    "address taken",
			req:     domain.ChangeEmailRequest{CurrentEmail: "alice@example.com", NewEmail: "bob@example.com", Password: "correct-horse"},
			wantErr: logicv1.ErrUserExists,
		},
		{
			name:    "unknown user",
			userID:  func(*domain.AuthResponse) string { return "ghost" },
			req:     domain.ChangeEmailRequest{CurrentEmail: "alice@example.com", NewEmail: "alice@new.example", Password: "correct-horse"},
			wantErr: logicv1.ErrUserNotFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newAuthFixture()
			resp := f.register(t)
			if _, err := f.svc.Register(ctx, domain.RegisterRequest{
				Username: "bob", Email: "bob@example.com", Password: "correct-horse",
			}); err != nil {
				t.Fatalf("Register bob: %v", err)
			}

			userID := resp.User.ID
			if tc.userID != nil {
				userID = tc.userID(resp)
			}

			user, err := f.svc.ChangeEmail(ctx, userID, tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr != nil {
				if row, _ := f.db.Users().GetByID(ctx, resp.User.ID); row.Email != "alice@example.com" {
					t.Fatalf("email changed to %q on failure", row.Email)
				}
				return
			}
			if user.Email != tc.wantEmail {
				t.Fatalf("Email = %q, want %q", user.Email, tc.wantEmail)
			}
			me, err := f.svc.GetUserByToken(ctx, resp.Token)
			if err != nil {
				t.Fatalf("GetUserByToken: %v", err)
			}
			if me.Email != tc.wantEmail {
				t.Fatalf("session user email = %q, want %q", me.Email, tc.wantEmail)
			}
		})
	}
}
