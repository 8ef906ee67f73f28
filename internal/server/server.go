package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Dependencies are the connections the server is built on. Redis is optional.
type Dependencies struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Images storage.ImageStore
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	deps   Dependencies
	cfg    *config.Config
}

// New builds the engine with middleware, the API routes, health, metrics and media
func New(cfg *config.Config, deps Dependencies) *Server {
	router := gin.New()
	router.Use(
		middleware.ErrorHandler(),
		middleware.RequestLogger(),
		middleware.PrometheusMetrics(),
		middleware.CORS(cfg.CORSOrigins),
	)

	var revoker service.TokenRevoker
	if deps.Redis != nil {
		revoker = service.NewRedisRevoker(deps.Redis)
	}
	services := api.NewServices(deps.DB, deps.Images, cfg.JWTSecret, cfg.TokenTTL, revoker)

	api.SetupAPI(router, services, api.Options{
		PageSize:            cfg.PageSize,
		CreationLimiter:     middleware.NewRecipeCreationRateLimiter(deps.Redis, cfg.RecipeCreateLimit, cfg.RateLimitWindow),
		ModificationLimiter: middleware.NewRecipeModificationRateLimiter(deps.Redis, cfg.RecipeModifyLimit, cfg.RateLimitWindow),
	})

	s := &Server{router: router, deps: deps, cfg: cfg}

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.StorageBackend == config.StorageDisk && strings.HasPrefix(cfg.MediaURL, "/") {
		router.Static(strings.TrimSuffix(cfg.MediaURL, "/"), cfg.MediaDir)
	}

	return s
}

// Handler exposes the engine, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok"}
	status := http.StatusOK

	if err := database.HealthCheck(ctx, s.deps.DB); err != nil {
		logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if s.deps.Redis != nil {
		checks["redis"] = "ok"
		if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
			logger.Warn("redis health check failed", zap.Error(err))
			checks["redis"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              net.JoinHostPort(s.cfg.ServerHost, s.cfg.ServerPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}
