package jobs

type JobType string

const (
	JobSendWelcomeEmail        JobType = "send_welcome_email"
	JobSendPasswordReset       JobType = "send_password_reset"
	JobSendBookingConfirmation JobType = "send_booking_confirmation"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobSendWelcomeEmail, JobSendPasswordReset, JobSendBookingConfirmation:
		return true
	default:
		return false
	}
}
