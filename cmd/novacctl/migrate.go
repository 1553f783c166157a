package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"novac/internal/config"
)

func migrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the transactions schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeFn, err := e.app()
			if err != nil {
				return err
			}
			defer closeFn()

			if app.Config.DB.Driver == config.DriverMemory {
				fmt.Fprintln(e.out, "memory driver: nothing to migrate")
				return nil
			}
			if err := app.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(e.out, "schema up to date (%s)\n", app.Config.DB.Driver)
			return nil
		},
	}
}
