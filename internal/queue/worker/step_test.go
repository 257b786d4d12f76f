package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Emmanuel246/natours/internal/domain/job"
	"github.com/Emmanuel246/natours/internal/domain/tour"
	"github.com/Emmanuel246/natours/internal/domain/user"
	"github.com/Emmanuel246/natours/internal/jobs"
	"github.com/Emmanuel246/natours/internal/observability"
	"github.com/Emmanuel246/natours/internal/queue/worker"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeJobStore struct {
	claimFn        func(ctx context.Context, workerID string) (job.Job, error)
	requeueStaleFn func(ctx context.Context, lockTTL time.Duration) (int64, error)

	done        []string
	failed      map[string]string
	rescheduled map[string]time.Time
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{
		failed:      make(map[string]string),
		rescheduled: make(map[string]time.Time),
	}
}

func (f *fakeJobStore) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	if f.claimFn != nil {
		return f.claimFn(ctx, workerID)
	}
	return job.Job{}, job.ErrJobNotFound
}

func (f *fakeJobStore) MarkDone(ctx context.Context, id string) error {
	f.done = append(f.done, id)
	return nil
}

func (f *fakeJobStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	f.failed[id] = errMsg
	return nil
}

func (f *fakeJobStore) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	f.rescheduled[id] = runAt
	return nil
}

func (f *fakeJobStore) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error) {
	if f.requeueStaleFn != nil {
		return f.requeueStaleFn(ctx, lockTTL)
	}
	return 0, nil
}

type fakeUsers struct {
	u user.User
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.u.ID == "" {
		return user.User{}, user.ErrNotFound
	}
	return f.u, nil
}

type fakeTourStore struct {
	t tour.Tour
}

func (f *fakeTourStore) GetByID(ctx context.Context, id string) (tour.Tour, error) {
	if f.t.ID == "" {
		return tour.Tour{}, tour.ErrNotFound
	}
	return f.t, nil
}

type fakeNotifier struct {
	welcomes      []string
	resets        []string
	confirmations []string
	err           error
}

func (f *fakeNotifier) SendWelcome(ctx context.Context, to, name string) error {
	f.welcomes = append(f.welcomes, to)
	return f.err
}

func (f *fakeNotifier) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	f.resets = append(f.resets, resetURL)
	return f.err
}

func (f *fakeNotifier) SendBookingConfirmation(ctx context.Context, to, name, tourName string, price float64) error {
	f.confirmations = append(f.confirmations, to)
	return f.err
}

func testWorker(t *testing.T, repo *fakeJobStore, users *fakeUsers, tours *fakeTourStore, notifier *fakeNotifier) *worker.Worker {
	t.Helper()

	prom := observability.NewProm(prometheus.NewRegistry())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return worker.New(worker.Config{WorkerID: "test-1"}, repo, users, tours, notifier, prom, log)
}

func welcomeJob(t *testing.T, userID string, attempts, maxAttempts int) job.Job {
	t.Helper()

	payload, err := jobs.EncodePayload(jobs.JobSendWelcomeEmail, jobs.SendWelcomeEmailPayload{UserID: userID})

	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	j := job.New(job.CreateRequest{Type: string(jobs.JobSendWelcomeEmail), Payload: payload, MaxAttempts: maxAttempts})
	j.Attempts = attempts
	return j
}

func TestProcessOneDeliversWelcome(t *testing.T) {
	u := user.User{ID: uuid.NewString(), Name: "Jo Tester", Email: "jo@example.com"}
	j := welcomeJob(t, u.ID, 0, 5)

	repo := newFakeJobStore()
	repo.claimFn = func(context.Context, string) (job.Job, error) { return j, nil }

	notifier := &fakeNotifier{}

	w := testWorker(t, repo, &fakeUsers{u: u}, &fakeTourStore{}, notifier)

	processed, err := w.ProcessOne(context.Background())

	if err != nil || !processed {
		t.Fatalf("processed=%v err=%v", processed, err)
	}

	if len(notifier.welcomes) != 1 || notifier.welcomes[0] != u.Email {
		t.Fatalf("unexpected welcome deliveries %v", notifier.welcomes)
	}

	if len(repo.done) != 1 || repo.done[0] != j.ID {
		t.Fatalf("job not marked done: %v", repo.done)
	}
}

func TestProcessOneEmptyQueue(t *testing.T) {
	repo := newFakeJobStore()

	w := testWorker(t, repo, &fakeUsers{}, &fakeTourStore{}, &fakeNotifier{})

	processed, err := w.ProcessOne(context.Background())

	if processed || err != nil {
		t.Fatalf("processed=%v err=%v, want false/nil", processed, err)
	}
}

func TestProcessOneReschedulesOnFailure(t *testing.T) {
	u := user.User{ID: uuid.NewString(), Name: "Jo", Email: "jo@example.com"}
	j := welcomeJob(t, u.ID, 0, 5)

	repo := newFakeJobStore()
	repo.claimFn = func(context.Context, string) (job.Job, error) { return j, nil }

	notifier := &fakeNotifier{err: errors.New("smtp down")}

	w := testWorker(t, repo, &fakeUsers{u: u}, &fakeTourStore{}, notifier)

	processed, err := w.ProcessOne(context.Background())

	if err != nil || !processed {
		t.Fatalf("processed=%v err=%v", processed, err)
	}

	runAt, ok := repo.rescheduled[j.ID]

	if !ok {
		t.Fatal("expected a reschedule")
	}

	if !runAt.After(time.Now().UTC()) {
		t.Fatalf("reschedule time %v not in the future", runAt)
	}

	if len(repo.failed) != 0 {
		t.Fatalf("job failed permanently too early: %v", repo.failed)
	}
}

func TestProcessOneFailsAtMaxAttempts(t *testing.T) {
	u := user.User{ID: uuid.NewString(), Name: "Jo", Email: "jo@example.com"}
	j := welcomeJob(t, u.ID, 4, 5)

	repo := newFakeJobStore()
	repo.claimFn = func(context.Context, string) (job.Job, error) { return j, nil }

	notifier := &fakeNotifier{err: errors.New("smtp down")}

	w := testWorker(t, repo, &fakeUsers{u: u}, &fakeTourStore{}, notifier)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	if _, ok := repo.failed[j.ID]; !ok {
		t.Fatal("expected permanent failure at the attempt cap")
	}

	if len(repo.rescheduled) != 0 {
		t.Fatalf("unexpected reschedule %v", repo.rescheduled)
	}
}

func TestProcessOneUnknownTypeIsPermanent(t *testing.T) {
	j := job.New(job.CreateRequest{Type: "mystery", Payload: []byte(`{}`), MaxAttempts: 5})

	repo := newFakeJobStore()
	repo.claimFn = func(context.Context, string) (job.Job, error) { return j, nil }

	w := testWorker(t, repo, &fakeUsers{}, &fakeTourStore{}, &fakeNotifier{})

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	if _, ok := repo.failed[j.ID]; !ok {
		t.Fatal("an undecodable job should fail permanently on the first attempt")
	}

	if len(repo.rescheduled) != 0 {
		t.Fatal("an undecodable job must not be retried")
	}
}

func TestRunSweepsAbandonedClaims(t *testing.T) {
	requeued := make(chan time.Duration, 1)

	repo := newFakeJobStore()
	repo.requeueStaleFn = func(_ context.Context, lockTTL time.Duration) (int64, error) {
		select {
		case requeued <- lockTTL:
		default:
		}
		return 1, nil
	}

	prom := observability.NewProm(prometheus.NewRegistry())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	w := worker.New(worker.Config{
		WorkerID:     "test-1",
		PollInterval: 5 * time.Millisecond,
		LockTTL:      10 * time.Millisecond,
	}, repo, &fakeUsers{}, &fakeTourStore{}, &fakeNotifier{}, prom, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	select {
	case lockTTL := <-requeued:
		if lockTTL != 10*time.Millisecond {
			t.Errorf("sweep ran with lock TTL %v, want 10ms", lockTTL)
		}

	case <-time.After(2 * time.Second):
		t.Error("stale-claim sweep never ran")
	}

	cancel()
	<-done
}

func TestProcessOneBookingConfirmation(t *testing.T) {
	u := user.User{ID: uuid.NewString(), Name: "Jo", Email: "jo@example.com"}
	tr := tour.Tour{ID: uuid.NewString(), Name: "Forest Hiker", Price: 397}

	payload, err := jobs.EncodePayload(jobs.JobSendBookingConfirmation, jobs.SendBookingConfirmationPayload{
		BookingID: uuid.NewString(),
		UserID:    u.ID,
		TourID:    tr.ID,
	})

	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	j := job.New(job.CreateRequest{Type: string(jobs.JobSendBookingConfirmation), Payload: payload})

	repo := newFakeJobStore()
	repo.claimFn = func(context.Context, string) (job.Job, error) { return j, nil }

	notifier := &fakeNotifier{}

	w := testWorker(t, repo, &fakeUsers{u: u}, &fakeTourStore{t: tr}, notifier)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(notifier.confirmations) != 1 {
		t.Fatalf("unexpected confirmations %v", notifier.confirmations)
	}

	if len(repo.done) != 1 {
		t.Fatal("job should be done")
	}
}
