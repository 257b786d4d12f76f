package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/Emmanuel246/natours/internal/domain/job"
)

func EncodePayload(t JobType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case JobSendWelcomeEmail:
		if !isPayload[SendWelcomeEmailPayload](payload) {
			return nil, ErrPayloadTypeMismatch
		}

	case JobSendPasswordReset:
		if !isPayload[SendPasswordResetPayload](payload) {
			return nil, ErrPayloadTypeMismatch
		}

	case JobSendBookingConfirmation:
		if !isPayload[SendBookingConfirmationPayload](payload) {
			return nil, ErrPayloadTypeMismatch
		}
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

func isPayload[P any](payload any) bool {
	switch payload.(type) {
	case P, *P:
		return true
	default:
		return false
	}
}

// DecodePayload unmarshals job.Payload into the correct typed payload struct.
func DecodePayload(j job.Job) (any, error) {
	t := JobType(j.Type)

	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch t {
	case JobSendWelcomeEmail:
		return decodeAs[SendWelcomeEmailPayload](j.Payload)

	case JobSendPasswordReset:
		return decodeAs[SendPasswordResetPayload](j.Payload)

	case JobSendBookingConfirmation:
		return decodeAs[SendBookingConfirmationPayload](j.Payload)

	default:
		return nil, ErrInvalidJobType
	}
}

func decodeAs[P any](raw []byte) (P, error) {
	var p P
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}
	return p, nil
}
