package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func sweepCmd(e *env) *cobra.Command {
	var (
		olderThan time.Duration
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Re-verify pending transactions older than a cutoff",
		Long: `Re-verify pending transactions that never received a webhook.

Records are checked oldest first. A reference that fails is reported and the
sweep continues; the command exits non-zero when any reference failed.

Examples:
  novacctl sweep
  novacctl sweep --older-than 1h --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return fmt.Errorf("--older-than must not be negative")
			}
			app, closeFn, err := e.app()
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := app.Sweeper.Sweep(cmd.Context(), olderThan, limit)
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			if err := e.printJSON(report); err != nil {
				return err
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("sweep: %d of %d references failed", len(report.Failed), report.Checked)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 15*time.Minute, "only records created before now minus this")
	cmd.Flags().IntVarP(&limit, "limit", "n", 200, "maximum records to check")
	return cmd
}
