package worker

import (
	"context"
	"errors"
	"time"

	"github.com/Emmanuel246/natours/internal/domain/job"
	"github.com/Emmanuel246/natours/internal/jobs"
)

// ProcessOne claims and executes a single job. The bool reports whether a
// job was claimed at all, so callers know when the queue is drained.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	err = w.prom.ObserveJob(j.Type, func() error {
		return w.execute(ctx, j)
	})

	if err != nil {
		w.handleFailure(ctx, j, err)
		return true, nil
	}

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.log.Info("job done", "job_id", j.ID, "type", j.Type)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	payload, err := jobs.DecodePayload(j)

	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case jobs.SendWelcomeEmailPayload:
		u, err := w.users.GetByID(ctx, p.UserID)
		if err != nil {
			return err
		}

		return w.notifier.SendWelcome(ctx, u.Email, u.Name)

	case jobs.SendPasswordResetPayload:
		u, err := w.users.GetByID(ctx, p.UserID)
		if err != nil {
			return err
		}

		return w.notifier.SendPasswordReset(ctx, u.Email, u.Name, p.ResetURL)

	case jobs.SendBookingConfirmationPayload:
		u, err := w.users.GetByID(ctx, p.UserID)
		if err != nil {
			return err
		}

		t, err := w.tours.GetByID(ctx, p.TourID)
		if err != nil {
			return err
		}

		return w.notifier.SendBookingConfirmation(ctx, u.Email, u.Name, t.Name, t.Price)

	default:
		return jobs.ErrInvalidJobType
	}
}

// handleFailure either reschedules with backoff or, on the last allowed
// attempt, parks the job as failed for operator inspection.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error) {
	attempt := j.Attempts + 1

	if attempt >= j.MaxAttempts || isPermanent(cause) {
		if err := w.repo.MarkFailed(ctx, j.ID, cause.Error()); err != nil {
			w.log.Error("mark failed", "job_id", j.ID, "err", err)
		}

		w.log.Error("job failed permanently", "job_id", j.ID, "type", j.Type, "attempt", attempt, "err", cause)
		return
	}

	runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))

	if err := w.repo.Reschedule(ctx, j.ID, runAt, cause.Error()); err != nil {
		w.log.Error("reschedule", "job_id", j.ID, "err", err)
		return
	}

	w.log.Warn("job rescheduled", "job_id", j.ID, "type", j.Type, "attempt", attempt, "run_at", runAt, "err", cause)
}

// isPermanent marks errors no retry can fix: an unknown type or a payload
// that will not decode is the same garbage on every attempt.
func isPermanent(err error) bool {
	return errors.Is(err, jobs.ErrInvalidJobType) || errors.Is(err, jobs.ErrInvalidJobPayload)
}
