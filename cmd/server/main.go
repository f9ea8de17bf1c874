// Command server runs the lead dispatch API, the optional Kafka lead intake
// consumer and the assignment expiry sweeper in one process.
//
// @title       Lead Dispatch API
// @version     1.0
// @description Allocates incoming leads to eligible artisans under monthly capacity quotas.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/lead-dispatch/internal/config"
	"github.com/tbourn/lead-dispatch/internal/events"
	httpapi "github.com/tbourn/lead-dispatch/internal/http"
	"github.com/tbourn/lead-dispatch/internal/observability"
	"github.com/tbourn/lead-dispatch/internal/repo"
	"github.com/tbourn/lead-dispatch/internal/services"
	"github.com/tbourn/lead-dispatch/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load() // .env is optional

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	logger := sysutil.NewLogger(os.Stdout, cfg.OTEL.ServiceName, cfg.LogPretty)
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
	logger.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(repo.Options{
		Driver:      cfg.DB.Driver,
		SQLitePath:  cfg.DB.Path,
		PostgresDSN: cfg.DB.URL,
		Tracing:     cfg.OTEL.Enabled,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	locker, closeLocker, err := newLocker(cfg.Lock)
	if err != nil {
		return err
	}
	defer closeLocker()

	var pub services.AssignmentPublisher
	if cfg.Kafka.Enabled {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AssignmentTopic)
		defer kp.Close()
		pub = kp
	}

	svc := httpapi.NewServices(db, cfg.Engine, locker, pub)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, svc, cfg, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	gctx = logger.WithContext(gctx)

	g.Go(func() error {
		logger.Info().
			Str("addr", srv.Addr).
			Str("db", cfg.DB.Driver).
			Str("lock", cfg.Lock.Backend).
			Bool("kafka", cfg.Kafka.Enabled).
			Str("version", appVersion).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if cfg.Kafka.Enabled && cfg.Kafka.LeadTopic != "" {
		consumer := events.NewLeadConsumer(cfg.Kafka.Brokers, cfg.Kafka.LeadTopic, cfg.Kafka.ConsumerGroup, svc.Allocator, logger)
		g.Go(func() error { return consumer.Run(gctx) })
	}

	if cfg.Engine.ExpirySweepInterval > 0 {
		g.Go(func() error { return svc.Assignments.RunExpirySweeper(gctx, cfg.Engine.ExpirySweepInterval) })
	}

	return g.Wait()
}

// newLocker builds the per-lead lock backend and a cleanup func.
func newLocker(cfg config.LockConfig) (services.LeadLocker, func(), error) {
	switch cfg.Backend {
	case config.LockPostgres:
		return services.PostgresLeadLocker{}, func() {}, nil
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		locker := &services.RedisLeadLocker{Client: client, TTL: cfg.TTL, Wait: cfg.Wait}
		return locker, func() { _ = client.Close() }, nil
	case config.LockMemory, "":
		return services.NewMemoryLeadLocker(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported lock backend %q", cfg.Backend)
}
