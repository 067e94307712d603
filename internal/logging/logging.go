package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rmacdonaldsmith/streamdash/internal/config"
)

// New returns a logger writing to the configured file, or to stderr when
// no path is set. The returned cleanup closes the file.
func New(cfg config.LogConfig) (*slog.Logger, func() error, error) {
	var (
		out     io.Writer = os.Stderr
		cleanup           = func() error { return nil }
	)

	if cfg.Path != "" {
		file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %q: %w", cfg.Path, err)
		}
		out = file
		cleanup = file.Close
	}

	handler, err := NewHandler(out, cfg)
	if err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	return slog.New(handler), cleanup, nil
}

// NewHandler builds a text or JSON handler on w
func NewHandler(w io.Writer, cfg config.LogConfig) (slog.Handler, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text", "":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidLogFormat, cfg.Format)
	}
}

// Tee fans records out to every handler that is enabled for them
type Tee []slog.Handler

func (t Tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t Tee) Handle(ctx context.Context, record slog.Record) error {
	var first error
	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t Tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(Tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t Tee) WithGroup(name string) slog.Handler {
	out := make(Tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
