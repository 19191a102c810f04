package main

import (
	"context"
	"fmt"
	"time"

	"walletsaga/internal/handlers"
	"walletsaga/internal/logger"
	"walletsaga/internal/repositories"
	"walletsaga/internal/repositories/cache"
	"walletsaga/internal/routes"
	"walletsaga/internal/services/idempotency"
	"walletsaga/internal/services/identity"
	"walletsaga/internal/services/ledger"
	"walletsaga/internal/services/notification"
	"walletsaga/internal/services/saga"
	"walletsaga/internal/services/transfer"
	"walletsaga/internal/utils/background"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const drainTimeout = 15 * time.Second

func newOrchestratorCommand(root *rootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "orchestrator",
		Short: "Run the transfer orchestrator",
		Long: `Run the transfer orchestrator.

Transfers, interbank transfers and reversals run as sagas against the ledger
engine at LEDGER_SERVICE_URL. Redis deduplicates retries when REDIS_ENABLED is
true, and history events go to Kafka when KAFKA_BROKERS is set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOrchestrator(cmd.Context(), root, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the orchestrator schema before serving")

	return cmd
}

func runOrchestrator(ctx context.Context, root *rootOptions, migrate bool) error {
	rt, err := bootstrap("orchestrator", "3000", root)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg := rt.cfg
	if migrate {
		if err := repositories.MigrateOrchestrator(rt.db); err != nil {
			return fmt.Errorf("migrate orchestrator: %w", err)
		}
	}

	var (
		store       idempotency.Store
		cacheHealth handlers.HealthChecker
	)
	if cfg.Redis.Enabled {
		cacheService := cache.NewCacheService(cache.NewRedisClient(&cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}), cfg.Idempotency.ResultTTL)
		defer cacheService.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := cacheService.HealthCheck(pingCtx); err != nil {
			rt.logger.Warn("redis unreachable, relying on the transaction store for idempotency", zap.Error(err))
		}
		cancel()

		store = cacheService
		cacheHealth = cacheService
	}

	var publisher notification.Publisher = notification.NewLogPublisher(logger.Named(rt.logger, "history"))
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := notification.NewKafkaPublisher(notification.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.HistoryTopic,
			WriteTimeout: cfg.NotifyTimeout,
		}, logger.Named(rt.logger, "kafka"))
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	ledgerClient := ledger.NewHTTPClient(cfg.Services.LedgerURL, cfg.Services.LedgerTimeout, logger.Named(rt.logger, "ledger_client"))
	users := identity.NewClient(cfg.Services.UserServiceURL, cfg.Services.UserTimeout, logger.Named(rt.logger, "identity"))

	notifier := notification.NewService(
		publisher,
		background.NewRunner(cfg.NotifyTimeout, logger.Named(rt.logger, "notify")),
		logger.Named(rt.logger, "notification"),
	)
	deposits := transfer.NewDepositProcessor(
		ledgerClient,
		users,
		background.NewRunner(cfg.Services.LedgerTimeout+cfg.Services.UserTimeout, logger.Named(rt.logger, "deposits")),
		cfg.DefaultCurrency,
		logger.Named(rt.logger, "deposits"),
	)
	// registered after the publisher so pending events flush before it closes
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := deposits.Wait(drainCtx); err != nil {
			rt.logger.Warn("pending deposits abandoned", zap.Error(err))
		}
		if err := notifier.Wait(drainCtx); err != nil {
			rt.logger.Warn("pending notifications abandoned", zap.Error(err))
		}
	}()

	var clearing saga.Clearing
	if url := cfg.Services.CentralAPIURL; url != "" {
		clearing = transfer.NewCentralClient(url, cfg.Services.CentralWalletToken, cfg.Services.CentralTimeout, logger.Named(rt.logger, "central"))
	}

	svc := saga.NewService(saga.Config{
		Ledger:   ledgerClient,
		Clearing: clearing,
		Repo:     repositories.NewTransactionRepository(rt.db),
		Guard: idempotency.NewGuard(store, idempotency.Config{
			ProcessingTTL: cfg.Idempotency.ProcessingTTL,
			ResultTTL:     cfg.Idempotency.ResultTTL,
		}, logger.Named(rt.logger, "idempotency")),
		Notifier:        notifier,
		Metrics:         rt.metrics,
		Logger:          logger.Named(rt.logger, "saga"),
		DefaultCurrency: cfg.DefaultCurrency,
	})

	app := rt.newApp("orchestrator")
	app.Use("/api/external", limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	routes.SetupOrchestratorRoutes(app, routes.OrchestratorDeps{
		DB:        rt.db,
		Saga:      svc,
		Deposits:  deposits,
		Cache:     cacheHealth,
		Metrics:   rt.metrics,
		JWTSecret: cfg.Auth.JWTSecret,
		B2BSecret: cfg.Auth.B2BSecretToken,
		Logger:    logger.Named(rt.logger, "http"),
	})

	return rt.serve(ctx, app)
}
