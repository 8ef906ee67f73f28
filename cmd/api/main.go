package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		// logger is not configured yet
		_, _ = os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(config.IsProduction(), cfg.LogLevel); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialise logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.RunMigrations(db, cfg.MigrationsDir); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = database.NewRedisClient(cfg)
		if err != nil {
			// rate limits and logout fall back to in-process state
			logger.Warn("redis unavailable, continuing without it", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to set up image storage", zap.Error(err))
	}

	srv := server.New(cfg, server.Dependencies{DB: db, Redis: redisClient, Images: images})
	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	if cfg.StorageBackend != config.StorageS3 {
		logger.Info("storing images on disk", zap.String("dir", cfg.MediaDir))
		return storage.NewDiskStore(cfg.MediaDir, cfg.MediaURL), nil
	}

	s3Cfg, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := s3Cfg.SetupBucketPolicy(ctx); err != nil {
		logger.Warn("failed to apply bucket policy", zap.String("bucket", s3Cfg.BucketName), zap.Error(err))
	}
	logger.Info("storing images in S3", zap.String("bucket", s3Cfg.BucketName))
	return storage.NewS3Store(s3Cfg), nil
}
