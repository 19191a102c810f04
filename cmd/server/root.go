package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	port string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Wallet ledger engine and transfer orchestrator",
		Long: `server runs one of the two wallet services.

The ledger engine owns balances and the append-only ledger. The orchestrator
drives transfers across it as sagas and keeps the transaction history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.port, "port", "p", "", "listen port (overrides PORT)")

	cmd.AddCommand(newLedgerCommand(opts))
	cmd.AddCommand(newOrchestratorCommand(opts))
	cmd.AddCommand(newMigrateCommand())

	return cmd
}
