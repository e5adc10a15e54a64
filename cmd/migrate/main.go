package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"postly/internal/bootstrap"
	"postly/internal/config"
	"postly/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo, postRepo, closeDB, err := bootstrap.OpenRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer closeDB()

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := postRepo.Init(ctx); err != nil {
		logger.Fatalf("init post repository: %v", err)
	}

	media, err := bootstrap.BuildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	report, err := service.NormalizeMediaRefs(ctx, postRepo, media, logger)
	if err != nil {
		logger.Errorf("migration aborted after %d posts: %v", report.Scanned, err)
		closeDB()
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{
		"scanned":   report.Scanned,
		"rewritten": report.Rewritten,
		"cleared":   report.Cleared,
	}).Info("media references migrated")
}
