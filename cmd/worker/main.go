package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Emmanuel246/natours/internal/config"
	"github.com/Emmanuel246/natours/internal/db"
	"github.com/Emmanuel246/natours/internal/email"
	"github.com/Emmanuel246/natours/internal/observability"
	"github.com/Emmanuel246/natours/internal/queue/worker"
	"github.com/Emmanuel246/natours/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	jobsRepo := postgres.NewJobsRepo(pool, prom)
	usersRepo := postgres.NewUsersRepo(pool, prom)
	toursRepo := postgres.NewToursRepo(pool, prom)

	// without SMTP credentials, mail goes to the log instead of the wire
	var notifier email.Notifier

	if cfg.SMTPUsername != "" {
		notifier = email.NewSMTPNotifier(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		})
	} else {
		log.Warn("no SMTP credentials, emails will only be logged")
		notifier = email.NewLogNotifier(log)
	}

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval: 500 * time.Millisecond,
		WorkerID:     workerID,
		Concurrency:  4,
		LockTTL:      time.Minute,
	}, jobsRepo, usersRepo, toursRepo, notifier, prom, log)

	healthSrv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port+1),
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	_ = healthSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
