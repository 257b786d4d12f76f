package email

import (
	"context"
	"log/slog"
)

// LogNotifier writes mail to the log instead of an SMTP relay. Used in dev
// and in tests.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendWelcome(ctx context.Context, to, name string) error {
	n.log.InfoContext(ctx, "email.welcome", "to", to, "name", name)
	return nil
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	n.log.InfoContext(ctx, "email.password_reset", "to", to, "name", name, "reset_url", resetURL)
	return nil
}

func (n *LogNotifier) SendBookingConfirmation(ctx context.Context, to, name, tourName string, price float64) error {
	n.log.InfoContext(ctx, "email.booking_confirmation", "to", to, "name", name, "tour", tourName, "price", price)
	return nil
}
