package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"novac/internal/access"
)

func tokenCmd(e *env) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := access.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			cfg, err := e.loadConfig(e.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			token, err := access.NewTokenVerifier(cfg.Auth.JWTSecret).Issue(subject, r, ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(e.out, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject, usually the operator's email")
	cmd.Flags().StringVar(&role, "role", string(access.RoleFinanceAnalyst), "administrator, payment_manager or finance_analyst")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
