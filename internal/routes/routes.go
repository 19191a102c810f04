// Package routes wires handlers and middleware for the two services.
package routes

import (
	"walletsaga/internal/handlers"
	"walletsaga/internal/metrics"
	"walletsaga/internal/middleware"
	"walletsaga/internal/services/ledger"
	"walletsaga/internal/services/saga"
	"walletsaga/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerDeps is what the ledger engine's API needs.
type LedgerDeps struct {
	DB      *gorm.DB
	Ledger  ledger.Service
	Metrics *metrics.Collector
}

// SetupLedgerRoutes mounts the ledger engine under /api/v1.
func SetupLedgerRoutes(app *fiber.App, deps LedgerDeps) {
	setupOps(app, "ledger", deps.DB, nil, deps.Metrics)

	walletHandler := handlers.NewWalletHandler(deps.Ledger)

	wallets := app.Group("/api/v1/wallets")
	wallets.Post("/", walletHandler.CreateWallet)
	wallets.Post("/credit", walletHandler.Credit)
	wallets.Post("/debit", walletHandler.Debit)
	wallets.Post("/compensate", walletHandler.Compensate)
	wallets.Get("/id/:walletId", walletHandler.GetWallet)
	wallets.Get("/:userId/balance", walletHandler.GetBalance)
	wallets.Get("/:walletId/ledger", walletHandler.GetLedger)
	wallets.Patch("/:walletId/status", walletHandler.UpdateStatus)

	app.Use(notFound)
}

// OrchestratorDeps is what the transfer orchestrator's API needs. Empty
// secrets leave the matching routes unauthenticated, except the external
// receive route which then refuses every call.
type OrchestratorDeps struct {
	DB        *gorm.DB
	Saga      saga.Service
	Deposits  handlers.DepositAcceptor
	Cache     handlers.HealthChecker
	Metrics   *metrics.Collector
	JWTSecret string
	B2BSecret string
	Logger    *zap.Logger
}

func SetupOrchestratorRoutes(app *fiber.App, deps OrchestratorDeps) {
	setupOps(app, "orchestrator", deps.DB, deps.Cache, deps.Metrics)

	txHandler := handlers.NewTransactionHandler(deps.Saga)

	var guards []fiber.Handler
	adminOnly := []fiber.Handler{}
	if deps.JWTSecret != "" {
		guards = append(guards, middleware.JWT(deps.JWTSecret, deps.Logger))
		adminOnly = append(adminOnly, middleware.AdminOnly)
	}

	transactions := app.Group("/transactions", guards...)
	transactions.Post("/", txHandler.CreateTransaction)
	transactions.Get("/", txHandler.ListTransactions)
	transactions.Post("/interbank", txHandler.CreateInterbank)
	transactions.Get("/:id", txHandler.GetTransaction)
	transactions.Post("/:id/reverse", append(adminOnly, txHandler.ReverseTransaction)...)

	if deps.Deposits != nil {
		externalHandler := handlers.NewExternalHandler(deps.Deposits)
		external := app.Group("/api/external", middleware.B2BKey(deps.B2BSecret, deps.Logger))
		external.Post("/receive", externalHandler.Receive)
	}

	app.Use(notFound)
}

// notFound answers requests no route matched. It must be mounted last.
func notFound(c *fiber.Ctx) error {
	return utils.NotFound(c, "no route for "+c.Method()+" "+c.Path())
}

func setupOps(app *fiber.App, service string, db *gorm.DB, cache handlers.HealthChecker, collector *metrics.Collector) {
	app.Get("/health", handlers.NewHealthHandler(service, db, cache).Check)
	if collector != nil {
		app.Get("/metrics", collector.Handler())
	}
}
