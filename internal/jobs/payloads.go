package jobs

// Payloads stay minimal and ID-based; the worker loads fresh details from the
// store when it runs, so a stale email address is never baked into a job.

type SendWelcomeEmailPayload struct {
	UserID    string `json:"userId"`
	RequestID string `json:"requestId,omitempty"` // correlation
}

// SendPasswordResetPayload carries the raw reset token because only its
// digest is persisted; the mail is the sole place the raw value ever goes.
type SendPasswordResetPayload struct {
	UserID    string `json:"userId"`
	ResetURL  string `json:"resetUrl"`
	RequestID string `json:"requestId,omitempty"`
}

type SendBookingConfirmationPayload struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	TourID    string `json:"tourId"`
	RequestID string `json:"requestId,omitempty"`
}
