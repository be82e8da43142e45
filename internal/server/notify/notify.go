// Package notify delivers user-facing messages such as one-time codes.
// Delivery itself is an external concern; the server only calls Notifier.
package notify

import (
	"context"

	"github.com/dmitrijs2005/tresorly/internal/logging"
)

// Purpose says why a code is being sent.
type Purpose string

const (
	PurposeSignup        Purpose = "signup"
	PurposePasswordReset Purpose = "password_reset"
	PurposeTwoFactor     Purpose = "two_factor"
)

type Notifier interface {
	SendOTP(ctx context.Context, email string, purpose Purpose, code string) error
}

// LogNotifier records codes in the server log instead of mailing them.
// Suitable for development only.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("module", "notify")}
}

func (n *LogNotifier) SendOTP(ctx context.Context, email string, purpose Purpose, code string) error {
	n.log.Info(ctx, "otp issued", "email", email, "purpose", string(purpose), "otp", code)
	return nil
}
