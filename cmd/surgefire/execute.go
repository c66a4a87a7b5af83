package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/surgefire/internal/config"
	"github.com/torosent/surgefire/internal/logging"
	"github.com/torosent/surgefire/internal/metrics"
	"github.com/torosent/surgefire/internal/output"
	"github.com/torosent/surgefire/internal/runner"
	"github.com/torosent/surgefire/internal/tracing"
	"github.com/torosent/surgefire/internal/transport"
)

const shutdownTimeout = 5 * time.Second

// execute compiles cfg, runs it and writes the report. The returned error
// covers setup and output problems only; the verdict lives in the report.
func execute(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (*runner.Report, error) {
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: stderr})
	if err != nil {
		return nil, err
	}
	defer func() { _ = logger.Sync() }()

	plan, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := plan.Close(); err != nil {
			logger.Warn("closing feeders", zap.Error(err))
		}
	}()

	provider, err := tracing.Init(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("flushing spans", zap.Error(err))
		}
	}()
	var spans *tracing.Provider
	if cfg.Tracing.Enabled() {
		spans = provider
	}

	tr := transport.Chain(transport.NewHTTP(cfg.Timeout),
		transport.WithThrottle(cfg.ThrottleRPS, cfg.ThrottleBurst),
		transport.WithTracing(spans),
		transport.WithLogging(logger),
	)

	collector := metrics.NewCollector(nil)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(collector), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics endpoint stopped", zap.String("addr", cfg.MetricsAddr), zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	}

	injections := make([]runner.Injection, len(plan.Injections))
	for i, inj := range plan.Injections {
		injections[i] = runner.Injection{Scenario: inj.Scenario, Profile: inj.Profile}
	}

	r := runner.New(runner.Options{
		Injections:       injections,
		Transport:        tr,
		Assertions:       plan.Assertions,
		Collector:        collector,
		Logger:           logger,
		BaseURL:          cfg.BaseURL,
		Headers:          cfg.Headers,
		MaxDuration:      cfg.MaxDuration,
		GracePeriod:      cfg.GracePeriod,
		OverrunTolerance: cfg.Overrun.Tolerance,
		Seed:             cfg.Seed,
		FailOnOverrun:    cfg.Overrun.Policy == config.OverrunFail,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress *output.ProgressReporter
	if cfg.Progress > 0 {
		progress = output.NewProgressReporter(collector, cfg.Progress, stderr)
		progress.Start()
	}
	report, err := r.Run(ctx)
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		return nil, err
	}

	format := string(cfg.Report.Format)
	if cfg.Report.File != "" {
		if err := output.WriteFile(cfg.Report.File, format, report); err != nil {
			return nil, err
		}
		logger.Info("report written", zap.String("path", cfg.Report.File), zap.String("format", format))
		return report, nil
	}
	if err := output.Write(stdout, format, report); err != nil {
		return nil, err
	}
	return report, nil
}
