package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func verifyCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [reference]",
		Short: "Re-verify one transaction with the gateway and store the result",
		Long: `Re-verify one transaction with the gateway and apply the verified state.

A reference unknown to the store is created from the verification.

Examples:
  novacctl verify WP_novac_3f1c2a9e-...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeFn, err := e.app()
			if err != nil {
				return err
			}
			defer closeFn()

			out, err := app.Reconcile.Reverify(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("verify %s: %w", args[0], err)
			}
			return e.printJSON(out)
		},
	}
}
