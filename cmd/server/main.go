package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"postly/internal/bootstrap"
	"postly/internal/cache"
	"postly/internal/config"
	apphttp "postly/internal/http"
	"postly/internal/service"
	"postly/internal/worker"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required (POSTLY_AUTH_JWTSECRET)")
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

	mediaStore, err := bootstrap.BuildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	feedCache := buildCache(ctx, cfg, logger)
	defer feedCache.Close()

	janitor := worker.NewJanitor(worker.Config{
		MaxConcurrent: cfg.Media.CleanupWorkers,
		Logger:        logger,
	}, mediaStore)
	janitor.Start(ctx)

	tokens, err := service.NewTokenService(cfg.Auth.JWTSecret, cfg.TokenTTL())
	if err != nil {
		logger.Fatalf("setup tokens: %v", err)
	}
	userService := service.NewUserService(userRepo)
	postService := service.NewPostService(postRepo, mediaStore, service.PostServiceConfig{
		MaxMediaSize: cfg.Media.MaxSize,
		Cache:        feedCache,
		Remover:      janitor,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, postService, tokens, apphttp.Options{
		AppName:      cfg.App.Name,
		Version:      cfg.App.Version,
		MaxMediaSize: cfg.Media.MaxSize,
		Logger:       logger,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	janitor.Shutdown()

	logger.Info("bye")
}

func buildCache(ctx context.Context, cfg config.Config, logger *logrus.Logger) cache.FeedCache {
	if cfg.Cache.RedisAddr == "" {
		return cache.Noop{}
	}
	feed, err := cache.NewRedisFeedCache(ctx, cache.RedisOptions{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
		TTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		Logger:   logger,
	})
	if err != nil {
		logger.Warnf("feed cache disabled: %v", err)
		return cache.Noop{}
	}
	logger.Infof("caching feed pages in redis %s", cfg.Cache.RedisAddr)
	return feed
}
