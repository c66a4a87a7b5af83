// Command library_api serves the in-memory library reservation API that the
// built-in presets target, so they can be exercised without the real backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/surgefire/internal/logging"
	"github.com/torosent/surgefire/internal/targetsim"
)

func main() {
	port := flag.Int("port", 8080, "Listening port")
	latency := flag.Duration("latency", 0, "Delay added to every response")
	origins := flag.String("allowed-origins", "", "Comma-separated CORS origins (empty allows any)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error")
	flag.Parse()

	logger, err := logging.New(logging.Options{Level: *logLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *port <= 0 {
		logger.Fatal("port must be > 0", zap.Int("port", *port))
	}

	opt := targetsim.Options{Latency: *latency, Logger: logger}
	if *origins != "" {
		opt.AllowedOrigins = strings.Split(*origins, ",")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           targetsim.New(opt).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("library API listening", zap.String("addr", srv.Addr), zap.Duration("latency", *latency))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
