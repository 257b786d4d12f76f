package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier delivers plain-text mail through a configured SMTP relay.
type SMTPNotifier struct {
	cfg SMTPConfig
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) SendWelcome(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to the Natours family! We're glad to have you on board.\n\nHappy travels,\nThe Natours Team\n",
		firstName(name),
	)
	return n.send(ctx, to, "Welcome to the Natours Family!", body)
}

func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nForgot your password? Submit a request with your new password to:\n\n%s\n\nThe link is valid for 10 minutes. If you didn't forget your password, ignore this email.\n",
		firstName(name), resetURL,
	)
	return n.send(ctx, to, "Your password reset token (valid for 10 minutes)", body)
}

func (n *SMTPNotifier) SendBookingConfirmation(ctx context.Context, to, name, tourName string, price float64) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour booking for %q is confirmed ($%.2f paid).\n\nSee you on the trail,\nThe Natours Team\n",
		firstName(name), tourName, price,
	)
	return n.send(ctx, to, "Your Natours booking is confirmed", body)
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, body string) error {
	m := mail.NewMsg()

	if err := m.From(n.cfg.From); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}

	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{mail.WithPort(n.cfg.Port)}

	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}

	client, err := mail.NewClient(n.cfg.Host, opts...)

	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	return client.DialAndSendWithContext(ctx, m)
}

func firstName(full string) string {
	for i, r := range full {
		if r == ' ' {
			return full[:i]
		}
	}
	return full
}
