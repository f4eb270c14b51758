package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wicketpool/points-pipeline/internal/app"
	"github.com/wicketpool/points-pipeline/internal/config"
	"github.com/wicketpool/points-pipeline/internal/observability"
	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() {
		_ = logger.Sync()
	}()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("shutdown tracing", "error", err)
		}
	}()

	stopProfiling, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := stopProfiling(); err != nil {
			logger.Error("stop profiling", "error", err)
		}
	}()

	runner, err := app.NewRunner(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.Error("close app", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunInterval <= 0 {
		report, err := runner.Pipeline.RunOnce(ctx)
		if err != nil {
			logger.Error("pipeline run failed", "error", err)
			os.Exit(1)
		}
		logger.Info("pipeline run finished", "run_id", report.RunID, "stage_errors", len(report.StageErrors))
		return
	}

	logger.Info("worker starting", "interval", cfg.RunInterval.String())
	ticker := time.NewTicker(cfg.RunInterval)
	defer ticker.Stop()

	for {
		report, err := runner.Pipeline.RunOnce(ctx)
		if err != nil {
			logger.Error("pipeline run failed", "error", err)
		} else {
			logger.Info("pipeline run finished", "run_id", report.RunID, "stage_errors", len(report.StageErrors))
		}

		select {
		case <-ctx.Done():
			logger.Info("worker stopping")
			return
		case <-ticker.C:
		}
	}
}
