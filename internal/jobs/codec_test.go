package jobs

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Emmanuel246/natours/internal/domain/job"
)

func TestEncodePayloadRoundTrip(t *testing.T) {
	in := SendWelcomeEmailPayload{UserID: "user-1", RequestID: "req-1"}

	b, err := EncodePayload(JobSendWelcomeEmail, in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out, err := DecodePayload(job.Job{Type: string(JobSendWelcomeEmail), Payload: b})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	got, ok := out.(SendWelcomeEmailPayload)
	if !ok {
		t.Fatalf("decoded to %T, want SendWelcomeEmailPayload", out)
	}

	if got != in {
		t.Fatalf("got %+v, want %+v", got, in)
	}
}

func TestEncodePayloadAcceptsPointer(t *testing.T) {
	in := &SendPasswordResetPayload{UserID: "user-1", ResetURL: "https://example.com/reset/abc"}

	if _, err := EncodePayload(JobSendPasswordReset, in); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestEncodePayloadTypeMismatch(t *testing.T) {
	in := SendWelcomeEmailPayload{UserID: "user-1"}

	_, err := EncodePayload(JobSendBookingConfirmation, in)
	if !errors.Is(err, ErrPayloadTypeMismatch) {
		t.Fatalf("err = %v, want ErrPayloadTypeMismatch", err)
	}
}

func TestEncodePayloadUnknownType(t *testing.T) {
	_, err := EncodePayload(JobType("mint_nfts"), SendWelcomeEmailPayload{})
	if !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("err = %v, want ErrInvalidJobType", err)
	}
}

func TestDecodePayloadFailures(t *testing.T) {
	tests := []struct {
		name    string
		job     job.Job
		wantErr error
	}{
		{
			name:    "unknown type",
			job:     job.Job{Type: "mint_nfts", Payload: json.RawMessage(`{}`)},
			wantErr: ErrInvalidJobType,
		},
		{
			name:    "empty payload",
			job:     job.Job{Type: string(JobSendWelcomeEmail)},
			wantErr: ErrInvalidJobPayload,
		},
		{
			name:    "malformed json",
			job:     job.Job{Type: string(JobSendWelcomeEmail), Payload: json.RawMessage(`{`)},
			wantErr: ErrInvalidJobPayload,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodePayload(tc.job)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
