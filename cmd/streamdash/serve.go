package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/streamdash/internal/devserver"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	config := devserver.Config{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local event server",
		Long: `Run a development event server speaking the subscription protocol.
It keeps the latest event per host and service, accepts events on
POST /events, and optionally publishes this machine's cpu, memory, and
load as events.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, cleanup, err := opts.newLogger()
			if err != nil {
				return err
			}
			defer cleanup()

			server, err := devserver.NewServer(config, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&config.Listen, "listen", devserver.DefaultListen, "Listen address")
	cmd.Flags().StringVar(&config.Secret, "secret", "", "JWT secret; publishing requires a token when set")
	cmd.Flags().DurationVar(&config.EmitInterval, "emit-interval", devserver.DefaultEmitInterval, "Host telemetry interval")
	cmd.Flags().BoolVar(&config.NoEmit, "no-emit", false, "Do not publish host telemetry")
	cmd.Flags().StringVar(&config.Hostname, "hostname", "", "Host name for telemetry events (default: this machine)")
	cmd.Flags().DurationVar(&config.ExpiryInterval, "expiry-interval", time.Second, "How often expired events are removed")

	return cmd
}
