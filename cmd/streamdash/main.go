package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/streamdash/internal/config"
	"github.com/rmacdonaldsmith/streamdash/internal/logging"
)

const (
	appName    = "streamdash"
	appVersion = "0.1.0"
)

// rootOptions holds the persistent flags shared by every command
type rootOptions struct {
	configPath string
	baseURL    string
	logLevel   string
	logFile    string
	token      string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Query-driven telemetry dashboard for Riemann-style event streams",
		Long: `streamdash subscribes to an event server over websockets and renders
the matching events as logs, graphs, and big numbers in the terminal.
Run without a subcommand to open the dashboard.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (.toml, .yaml, .yml)")
	flags.StringVar(&opts.baseURL, "url", "", "Event server base URL (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFile, "log-file", "", "Write logs to this file")
	flags.StringVar(&opts.token, "token", "", "Bearer token for the event server")

	rootCmd.AddCommand(newDashCommand(opts))
	rootCmd.AddCommand(newTailCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newPublishCommand(opts))
	rootCmd.AddCommand(newHealthCommand(opts))
	rootCmd.AddCommand(newTokenCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// loadConfig reads the config file if one was given and applies flag
// overrides on top.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.token != "" {
		cfg.Token = o.token
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFile != "" {
		cfg.Log.Path = o.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the stderr or file logger for non-interactive commands
func (o *rootOptions) newLogger() (*slog.Logger, func() error, error) {
	cfg := config.LogConfig{Level: config.DefaultLogLevel, Format: config.DefaultLogFormat}
	if o.configPath != "" {
		loaded, err := o.loadConfig()
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded.Log
	}
	if o.logLevel != "" {
		cfg.Level = o.logLevel
	}
	if o.logFile != "" {
		cfg.Path = o.logFile
	}
	return logging.New(cfg)
}
