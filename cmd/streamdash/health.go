package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/streamdash/pkg/httpclient"
)

func newHealthCommand(opts *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check event server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			client, err := httpclient.NewClient(httpclient.Config{ServerURL: cfg.BaseURL, Timeout: timeout})
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			health, err := client.GetHealth(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if health.Healthy {
				fmt.Fprintln(out, "Server is healthy")
			} else {
				fmt.Fprintln(out, "Server is not healthy")
			}
			fmt.Fprintf(out, "Subscribers: %d\n", health.Subscribers)
			fmt.Fprintf(out, "Indexed: %d\n", health.Indexed)
			fmt.Fprintf(out, "Published: %d\n", health.Published)
			fmt.Fprintf(out, "Dropped: %d\n", health.Dropped)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	return cmd
}
