// poscached serves a push-updated mirror of authoritative ledger positions
// over HTTP, with Prometheus metrics on a separate listener.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/poscache/internal/config"
)

func main() {
	configPath := flag.String("config", "poscached.yaml", "path to the YAML config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		logger.Fatal("Configuration error", zap.Error(err))
	}

	root, err := NewCompositionRoot(cfg, logger)
	if err != nil {
		logger.Fatal("Startup error", zap.Error(err))
	}

	errCh := root.Run()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	root.Shutdown(ctx)
	logger.Info("Stopped")
}
