package email

import "context"

// Notifier is the outbound email collaborator. Delivery failure is reported
// to the caller (the job worker) but never rolls back the operation that
// triggered the mail.
type Notifier interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
	SendBookingConfirmation(ctx context.Context, to, name, tourName string, price float64) error
}
