package main

import (
	"context"
	"fmt"

	"walletsaga/internal/logger"
	"walletsaga/internal/repositories"
	"walletsaga/internal/routes"
	"walletsaga/internal/services/identity"
	"walletsaga/internal/services/ledger"

	"github.com/spf13/cobra"
)

func newLedgerCommand(root *rootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Run the wallet ledger engine",
		Long: `Run the wallet ledger engine.

It serves wallet creation, credit, debit and compensation under /api/v1/wallets.
Counterparty names in detailed ledger listings come from USER_SERVICE_URL when set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLedger(cmd.Context(), root, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the ledger schema before serving")

	return cmd
}

func runLedger(ctx context.Context, root *rootOptions, migrate bool) error {
	rt, err := bootstrap("ledger", "8080", root)
	if err != nil {
		return err
	}
	defer rt.close()

	if migrate {
		if err := repositories.MigrateLedger(rt.db); err != nil {
			return fmt.Errorf("migrate ledger: %w", err)
		}
	}

	var directory ledger.Directory
	if url := rt.cfg.Services.UserServiceURL; url != "" {
		directory = identity.NewClient(url, rt.cfg.Services.UserTimeout, logger.Named(rt.logger, "identity"))
	}

	svc := ledger.NewService(
		repositories.NewWalletRepository(rt.db),
		directory,
		ledger.Config{DefaultCurrency: rt.cfg.DefaultCurrency},
		rt.metrics,
		logger.Named(rt.logger, "ledger"),
	)

	app := rt.newApp("ledger")
	routes.SetupLedgerRoutes(app, routes.LedgerDeps{
		DB:      rt.db,
		Ledger:  svc,
		Metrics: rt.metrics,
	})

	return rt.serve(ctx, app)
}
