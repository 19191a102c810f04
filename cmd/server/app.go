package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"walletsaga/internal/config"
	"walletsaga/internal/logger"
	"walletsaga/internal/metrics"
	"walletsaga/internal/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	shutdownTimeout = 10 * time.Second
	poolStatsPeriod = 5 * time.Minute
)

// runtime holds what both services build before mounting their routes.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	metrics *metrics.Collector
}

func bootstrap(service, defaultPort string, opts *rootOptions) (*runtime, error) {
	cfg := config.Load(defaultPort)
	if opts.port != "" {
		cfg.Port = opts.port
	}

	log, err := logger.New(cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	log = log.With(zap.String("service", service))

	db, err := repositories.Open(cfg.DB)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	collector := metrics.New(service)
	if sqlDB, err := db.DB(); err == nil {
		collector.RegisterDB(sqlDB, cfg.DB.Name)
	}

	return &runtime{cfg: cfg, logger: log, db: db, metrics: collector}, nil
}

func (rt *runtime) close() {
	if err := repositories.Close(rt.db); err != nil {
		rt.logger.Warn("failed to close database connection", zap.Error(err))
	}
	_ = rt.logger.Sync()
}

// newApp builds the fiber app with the middleware stack shared by both
// services.
func (rt *runtime) newApp(service string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "walletsaga " + service,
		DisableStartupMessage: rt.cfg.IsProduction(),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     rt.cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, x-wallet-b2b-key",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: rt.cfg.CORSOrigins != "*",
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(rt.metrics.Middleware())

	return app
}

// serve listens until ctx is cancelled, then drains in-flight requests.
func (rt *runtime) serve(ctx context.Context, app *fiber.App) error {
	go rt.watchPool(ctx)

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("listening", zap.String("port", rt.cfg.Port))
		errCh <- app.Listen(":" + rt.cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (rt *runtime) watchPool(ctx context.Context) {
	sqlDB, err := rt.db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(poolStatsPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := sqlDB.Stats()
			rt.logger.Info("database pool",
				zap.Int("open", stats.OpenConnections),
				zap.Int("in_use", stats.InUse),
				zap.Int("idle", stats.Idle),
				zap.Int64("wait_count", stats.WaitCount),
				zap.Duration("wait_duration", stats.WaitDuration),
			)
		}
	}
}
