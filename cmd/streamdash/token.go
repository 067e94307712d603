package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/streamdash/internal/devserver"
)

func newTokenCommand() *cobra.Command {
	var (
		secret  string
		subject string
		admin   bool
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a server started with --secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, expiresAt, err := devserver.NewJWTAuth(secret).GenerateToken(subject, admin, ttl)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "JWT secret (required)")
	cmd.Flags().StringVar(&subject, "subject", "streamdash", "Token subject")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant admin")
	cmd.Flags().DurationVar(&ttl, "ttl", devserver.DefaultTokenTTL, "Token lifetime")
	if err := cmd.MarkFlagRequired("secret"); err != nil {
		panic(fmt.Sprintf("Failed to mark secret as required: %v", err))
	}

	return cmd
}
