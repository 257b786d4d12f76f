package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Emmanuel246/natours/internal/domain/job"
	"github.com/Emmanuel246/natours/internal/domain/tour"
	"github.com/Emmanuel246/natours/internal/domain/user"
	"github.com/Emmanuel246/natours/internal/email"
	"github.com/Emmanuel246/natours/internal/observability"
)

type JobStore interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type TourReader interface {
	GetByID(ctx context.Context, id string) (tour.Tour, error)
}

type Config struct {
	PollInterval time.Duration
	WorkerID     string
	Concurrency  int

	// LockTTL bounds how long a claimed job may sit in processing before
	// it is treated as abandoned and handed back to the pending pool.
	LockTTL time.Duration
}

// Worker drains the jobs table: each slot polls, claims one runnable job
// with SKIP LOCKED, and delivers the mail it describes.
type Worker struct {
	cfg      Config
	repo     JobStore
	users    UserReader
	tours    TourReader
	notifier email.Notifier
	prom     *observability.Prom
	log      *slog.Logger

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobStore, users UserReader, tours TourReader, notifier email.Notifier, prom *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		users:    users,
		tours:    tours,
		notifier: notifier,
		prom:     prom,
		log:      log,
	}
}

// Run blocks until ctx is cancelled. Each slot keeps claiming as long as
// work is available, then falls back to the poll interval.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)

		go func(slot int) {
			defer wg.Done()
			w.runSlot(ctx, slot)
		}(i)
	}

	wg.Add(1)

	go func() {
		defer wg.Done()
		w.runRequeue(ctx)
	}()

	wg.Wait()

	w.log.Info("worker stopped")
	return nil
}

func (w *Worker) runSlot(ctx context.Context, slot int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			// drain until the queue is empty so a burst doesn't wait
			// one tick per job
			for {
				processed, err := w.ProcessOne(ctx)

				if err != nil {
					w.log.Error("process job", "slot", slot, "err", err)
				}

				if !processed || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// runRequeue periodically sweeps jobs whose claimant died mid-flight back
// to pending, so a worker crash only delays a mail instead of losing it.
func (w *Worker) runRequeue(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.LockTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			n, err := w.repo.RequeueStaleProcessing(sweepCtx, w.cfg.LockTTL)
			cancel()

			if err != nil {
				w.log.Error("requeue stale jobs", "err", err)
				continue
			}

			if n > 0 {
				w.log.Warn("requeued stale jobs", "count", n)
			}
		}
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
