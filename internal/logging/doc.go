// Package logging builds the process slog.Logger and the handler that
// routes log records into the dashboard status bar.
package logging
