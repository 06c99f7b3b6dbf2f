package otp

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier delivers a reset code to its owner.
type Notifier interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// LogNotifier writes reset codes to the request logger at debug level.
// It stands in for a mail sender in development.
type LogNotifier struct{}

// SendResetCode implements Notifier.
func (LogNotifier) SendResetCode(ctx context.Context, email, code string) error {
	zerolog.Ctx(ctx).Debug().
		Str("email", email).
		Str("code", code).
		Msg("Password reset code issued")
	return nil
}
