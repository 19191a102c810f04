package main

import (
	"fmt"

	"walletsaga/internal/config"
	"walletsaga/internal/repositories"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var migrations = map[string]func(*gorm.DB) error{
	"ledger":       repositories.MigrateLedger,
	"orchestrator": repositories.MigrateOrchestrator,
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "migrate <ledger|orchestrator>",
		Short:         "Apply a service's database schema and exit",
		Args:          cobra.ExactArgs(1),
		ValidArgs:     []string{"ledger", "orchestrator"},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, ok := migrations[args[0]]
			if !ok {
				return fmt.Errorf("unknown service %q", args[0])
			}

			db, err := repositories.Open(config.Load("").DB)
			if err != nil {
				return err
			}
			defer repositories.Close(db)

			if err := migrate(db); err != nil {
				return fmt.Errorf("migrate %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", args[0])
			return nil
		},
	}
}
