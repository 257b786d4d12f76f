package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Emmanuel246/natours/internal/cache"
	"github.com/Emmanuel246/natours/internal/config"
	"github.com/Emmanuel246/natours/internal/db"
	httpx "github.com/Emmanuel246/natours/internal/http"
	"github.com/Emmanuel246/natours/internal/observability"
	"github.com/Emmanuel246/natours/internal/payments"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing is optional; without an endpoint the shutdown func is a no-op
	shutdownTracer, err := observability.InitTracer(context.Background(), "natours-api", cfg.OTLPEndpoint)

	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	migrateCtx, cancelMigrate := config.WithTimeout(30 * time.Second)

	if err := db.RunMigrations(migrateCtx, cfg.DBURL); err != nil {
		cancelMigrate()
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	if err := db.EnsureAdminUser(migrateCtx, pool, cfg); err != nil {
		cancelMigrate()
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}
	cancelMigrate()

	// redis for the hot read paths; fall back to in-process memory when it
	// is unreachable so a cache outage never blocks startup
	var store cache.Cache

	redisStore := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      5 * time.Minute,
	})

	pingCtx, cancelPing := config.WithTimeout(2 * time.Second)

	if err := redisStore.Ping(pingCtx); err != nil {
		log.Warn("redis unreachable, using in-memory cache", "err", err)
		store = cache.NewMemory(5 * time.Minute)
	} else {
		store = redisStore
		defer redisStore.Close()
	}
	cancelPing()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	provider := payments.NewStripeProvider(cfg.StripeSecretKey)

	router := httpx.NewRouter(cfg, log, pool, store, prom, provider)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
