package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	authapi "go.pilab.hu/sessiond/api/echo"
	"go.pilab.hu/sessiond/cache"
	rediscache "go.pilab.hu/sessiond/cache/redis"
	"go.pilab.hu/sessiond/config"
	"go.pilab.hu/sessiond/internal/auth"
	"go.pilab.hu/sessiond/internal/metrics"
	"go.pilab.hu/sessiond/internal/server"
	"go.pilab.hu/sessiond/log"
	"go.pilab.hu/sessiond/middleware"
	"go.pilab.hu/sessiond/mongodb"
	"go.pilab.hu/sessiond/services"
	"go.pilab.hu/sessiond/tracing"
	"golang.org/x/crypto/bcrypt"
)

var (
	appLogger      log.Logger
	httpServer     *http.Server
	tracerProvider *sdktrace.TracerProvider
)

func main() {
	// Load configuration first
	cfg, err := config.LoadConfig()
	if err != nil {
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize Logger
	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Warn().
			Str("configured_log_level", cfg.LogLevel).
			Str("fallback_log_level", logLevel.String()).
			Err(parseErr).
			Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}
	appLogger = log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting sessiond server...", map[string]any{
		"http_port":      cfg.HTTPPort,
		"mongo_uri":      cfg.MongoURI,
		"mongo_db_name":  cfg.MongoDBName,
		"redis_addr":     cfg.RedisAddr,
		"log_level":      cfg.LogLevel,
		"sweep_interval": cfg.SweepInterval().String(),
	})

	// Initialize OpenTelemetry TracerProvider
	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err)
	}
	tracerProvider = tp

	// --- Initialize Dependencies ---
	if initErr := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); initErr != nil {
		appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", initErr)
	}
	db := mongodb.GetDB()

	// Repositories
	activityRepo, err := mongodb.NewActivityRepositoryMongo(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize ActivityRepository", err)
	}

	userRepo, err := mongodb.NewUserRepositoryMongo(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize UserRepository", err)
	}

	// Activity cache: Redis when configured, in-process otherwise.
	var activityStore cache.ActivityStore
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
			appLogger.Fatal(ctx, "Failed to connect to Redis", pingErr)
		}
		activityStore = rediscache.NewActivityStore(redisClient, cfg.RedisPrefix, cfg.ActivityCacheTTL())
	} else {
		activityStore = cache.NewMemoryActivityStore(cfg.ActivityCacheTTL())
	}

	// Services
	policy := services.NewLifetimePolicy()
	tokenService := services.NewTokenService(cfg.TokenIssuer, cfg.AccessTokenSecret, cfg.RefreshTokenSecret, policy)
	tracker := services.NewActivityTracker(activityRepo, activityStore)
	passwordHasher := auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)
	authService := services.NewAuthService(userRepo, tracker, tokenService, passwordHasher)

	// Metrics
	registry := prometheus.NewRegistry()
	metrics.InitCustomMetrics(registry)

	// Periodic reconciler
	reconciler := services.NewReconciler(activityRepo, cfg.SweepInterval(), cfg.SweepBootDelay())
	scheduler := reconciler.Start(ctx)

	// HTTP surface
	authenticator := middleware.NewAuthenticator(tokenService, tracker)
	authAPI := authapi.NewAuthAPI(authService, tracker, authenticator)
	httpServer = server.NewHTTPServer(cfg, appLogger, authAPI, registry)

	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]any{"addr": httpServer.Addr})
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			appLogger.Fatal(ctx, "HTTP server failed", serveErr)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info(ctx, "Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
	}

	scheduler.Stop()
	activityStore.Close()
	mongodb.CloseMongoDB(shutdownCtx)

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
	}

	appLogger.Info(ctx, "Shutdown complete.")
}
