package main

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/streamdash/internal/config"
	"github.com/rmacdonaldsmith/streamdash/internal/dashboard"
	"github.com/rmacdonaldsmith/streamdash/internal/logging"
	"github.com/rmacdonaldsmith/streamdash/internal/wsconn"
)

func newDashCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Open the dashboard",
		Long: `Open the interactive dashboard. Workspaces and widgets come from the
config file, or a single log widget of every event when none is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(opts)
		},
	}
}

// dashboardLogger routes warnings to the status bar and, when a log file
// is configured, everything at the configured level to the file. Logging
// to stderr would corrupt the alternate screen, so it is never used here.
func dashboardLogger(cfg *config.Config) (*slog.Logger, *logging.TUIHandler, func() error, error) {
	statusHandler := logging.NewTUIHandler(slog.LevelWarn)
	if cfg.Log.Path == "" {
		return slog.New(statusHandler), statusHandler, func() error { return nil }, nil
	}

	fileLogger, cleanup, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	return slog.New(logging.Tee{fileLogger.Handler(), statusHandler}), statusHandler, cleanup, nil
}

func runDashboard(opts *rootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	logger, statusHandler, cleanup, err := dashboardLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	dialer := wsconn.NewDialer(wsconn.Config{HandshakeTimeout: cfg.HandshakeTimeout.Duration}.WithBearerToken(cfg.Token), logger)

	model, err := dashboard.New(dashboard.Options{
		Config:    cfg,
		Connector: dialer,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build dashboard: %w", err)
	}

	program := tea.NewProgram(model, tea.WithAltScreen())
	statusHandler.SetProgram(program)

	logger.Info("dashboard starting", "url", cfg.BaseURL, "workspaces", len(cfg.Workspaces))

	final, err := program.Run()
	if m, ok := final.(dashboard.Model); ok {
		m.Close()
	} else {
		model.Close()
	}
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
