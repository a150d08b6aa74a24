package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rafaelcosta/cryptofolio-backend/internal/adapter/repository/postgres"
	"github.com/rafaelcosta/cryptofolio-backend/internal/app"
	"github.com/rafaelcosta/cryptofolio-backend/internal/config"
	"github.com/rafaelcosta/cryptofolio-backend/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envOnly := flag.Bool("env-only", false, "skip the config file, use env vars and defaults")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envOnly)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	db, err := postgres.NewDB(cfg.DB)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Bootstrap(ctx); err != nil {
		zlog.Fatal("failed to bootstrap schema", zap.Error(err))
	}

	application := app.New(cfg, db, zlog)

	if err := application.Scheduler.Start(ctx); err != nil {
		zlog.Fatal("failed to start snapshot scheduler", zap.Error(err))
	}

	zlog.Info("cryptofolio backend running",
		zap.Int("snapshot_interval_minutes", application.Scheduler.Interval()))

	waitForShutdown(application, zlog)
}

// waitForShutdown waits for SIGTERM or SIGINT and stops the scheduler gracefully
func waitForShutdown(application *app.App, zlog *zap.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	zlog.Info("received signal, shutting down", zap.String("signal", sig.String()))

	application.Scheduler.Stop()
}
