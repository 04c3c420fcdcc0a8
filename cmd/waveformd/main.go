// Command waveformd runs the waveform engine as a standalone daemon,
// exposing task submission, cancellation, progress streaming, and
// statistics over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/sonixlabs/waveform-engine/internal/cache"
	"github.com/sonixlabs/waveform-engine/internal/codec"
	"github.com/sonixlabs/waveform-engine/internal/config"
	"github.com/sonixlabs/waveform-engine/internal/monitor"
	"github.com/sonixlabs/waveform-engine/internal/platform/logger"
	"github.com/sonixlabs/waveform-engine/internal/scheduler"
	"github.com/sonixlabs/waveform-engine/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "waveformd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.Setup(cfg.Server)

	resultCache, err := buildCache(cfg.Cache)
	if err != nil {
		return err
	}

	mon := monitor.New(log, monitor.NewCollector(prometheus.DefaultRegisterer))

	sched := scheduler.New(
		scheduler.Config{
			MaxConcurrent:           cfg.Engine.MaxConcurrent,
			PoolSize:                cfg.Engine.PoolSize,
			IdleTimeout:             cfg.Engine.IdleTimeout,
			HealthCheckTimeout:      cfg.Engine.HealthCheckTimeout,
			CancelGrace:             cfg.Engine.CancelGrace,
			ShutdownGrace:           cfg.Engine.ShutdownGrace,
			TickInterval:            cfg.Engine.TickInterval,
			MaxQueueDepth:           cfg.Engine.MaxQueueDepth,
			EnableProgressReporting: cfg.Engine.EnableProgressReporting,
			ProgressBufferSize:      cfg.Engine.ProgressBufferSize,
		},
		worker.Deps{
			Loader:    codec.FileLoader{},
			Decoder:   codec.WAVDecoder{},
			Generator: codec.DownsampleGenerator{},
			Cache:     resultCache,
		},
		mon,
		log,
	)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	srv := &server{scheduler: sched, logger: log}
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.routes(),
	}

	return serve(httpServer, sched, cfg.Engine.ShutdownGrace, log)
}

// serve runs the HTTP server until SIGINT/SIGTERM, then shuts the
// server and the scheduler down within the grace period.
func serve(httpServer *http.Server, sched *scheduler.Scheduler, grace time.Duration, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown incomplete", "error", err)
	}
	if err := sched.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

func buildCache(cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return cache.NewMemory(), nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		return cache.NewRedis(redis.NewClient(opts), cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
