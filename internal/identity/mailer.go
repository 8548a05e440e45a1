package identity

import (
	"context"
	"log/slog"
)

// Mailer delivers account emails. Deliverability is out of scope; the
// interface exists so deployments can plug in a real sender.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, resetURL string) error
}

// LogMailer writes the reset link to the application log instead of sending
// mail. Default in development.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, email, resetURL string) error {
	m.logger.Info("password reset requested", "email", email, "reset_url", resetURL)
	return nil
}
