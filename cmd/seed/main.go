// Command seed prepares local data: funded wallets on the ledger engine's
// database and bcrypt hashes for the partner secret.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"walletsaga/internal/config"
	apperrors "walletsaga/internal/errors"
	"walletsaga/internal/logger"
	"walletsaga/internal/models"
	"walletsaga/internal/repositories"
	"walletsaga/internal/services/ledger"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SeedCounterparty marks the credits this command makes.
const SeedCounterparty = "SEED"

func main() {
	config.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Seed local wallet data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newWalletsCommand())
	cmd.AddCommand(newB2BHashCommand())
	return cmd
}

type walletsOptions struct {
	users    []uint
	amount   string
	currency string
	migrate  bool
}

func newWalletsCommand() *cobra.Command {
	opts := &walletsOptions{}

	cmd := &cobra.Command{
		Use:   "wallets",
		Short: "Create and fund a wallet per user",
		Long: `Create a wallet for each user and credit it once.

The credit is keyed seed:<userId>, so running the command again leaves
balances untouched, even with a different --amount.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWallets(cmd, opts)
		},
	}

	cmd.Flags().UintSliceVar(&opts.users, "users", nil, "user ids to seed (required)")
	cmd.Flags().StringVar(&opts.amount, "amount", "1000", "opening balance")
	cmd.Flags().StringVar(&opts.currency, "currency", "", "wallet currency (default DEFAULT_CURRENCY)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", true, "apply the ledger schema first")
	_ = cmd.MarkFlagRequired("users")

	return cmd
}

func runWallets(cmd *cobra.Command, opts *walletsOptions) error {
	amount, err := decimal.NewFromString(opts.amount)
	if err != nil || !amount.IsPositive() {
		return fmt.Errorf("invalid amount %q", opts.amount)
	}

	cfg := config.Load("")
	log, err := logger.New(cfg.IsProduction())
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := repositories.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer repositories.Close(db)

	if opts.migrate {
		if err := repositories.MigrateLedger(db); err != nil {
			return fmt.Errorf("migrate ledger: %w", err)
		}
	}

	svc := ledger.NewService(
		repositories.NewWalletRepository(db),
		nil,
		ledger.Config{DefaultCurrency: cfg.DefaultCurrency},
		nil,
		log.Named("ledger"),
	)

	for _, userID := range opts.users {
		wallet, err := seedWallet(cmd.Context(), svc, userID, opts.currency, amount)
		if err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}
		log.Info("wallet seeded",
			zap.Uint("user_id", userID),
			zap.Uint("wallet_id", wallet.ID),
			zap.String("balance", wallet.Balance.String()),
			zap.String("currency", wallet.Currency))
		fmt.Fprintf(cmd.OutOrStdout(), "user %d: wallet %d holds %s %s\n",
			userID, wallet.ID, wallet.Balance.StringFixed(2), wallet.Currency)
	}
	return nil
}

func seedWallet(ctx context.Context, svc ledger.Service, userID uint, currency string, amount decimal.Decimal) (*models.Wallet, error) {
	wallet, err := svc.Create(ctx, ledger.CreateWalletRequest{UserID: userID, Currency: currency})
	if errors.Is(err, apperrors.ErrDuplicateWallet) {
		wallet, err = svc.GetBalance(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	credited, err := svc.Credit(ctx, ledger.OperationRequest{
		WalletID:              wallet.ID,
		Amount:                amount,
		ExternalTransactionID: fmt.Sprintf("seed:%d", userID),
		CounterpartyID:        SeedCounterparty,
	})
	if errors.Is(err, apperrors.ErrExternalIDReused) {
		// seeded earlier with another amount
		return svc.GetWallet(ctx, wallet.ID)
	}
	return credited, err
}

func newB2BHashCommand() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "b2b-hash <secret>",
		Short: "Print a bcrypt hash to use as B2B_SECRET_TOKEN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), cost)
			if err != nil {
				return fmt.Errorf("failed to hash secret: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	return cmd
}
