package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// StatusMsg carries one log record to the dashboard status bar
type StatusMsg struct {
	Summary string
	Level   slog.Level
}

// Sender is the part of *tea.Program the handler needs
type Sender interface {
	Send(msg tea.Msg)
}

// TUIHandler is a slog.Handler that delivers records at or above its
// level to a bubbletea program as StatusMsg values.
//
// Records arriving before SetProgram are dropped. Handlers derived through
// WithAttrs and WithGroup share the program pointer of their root.
type TUIHandler struct {
	level   slog.Level
	program *atomic.Pointer[Sender]
	attrs   []slog.Attr
	groups  []string
}

// NewTUIHandler creates a handler for records at or above level
func NewTUIHandler(level slog.Level) *TUIHandler {
	return &TUIHandler{
		level:   level,
		program: &atomic.Pointer[Sender]{},
	}
}

// SetProgram enables delivery. Safe to call from any goroutine.
func (h *TUIHandler) SetProgram(program Sender) {
	h.program.Store(&program)
}

func (h *TUIHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *TUIHandler) Handle(_ context.Context, record slog.Record) error {
	program := h.program.Load()
	if program == nil {
		return nil
	}

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	var parts []string
	for _, attr := range h.attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s%s=%s", prefix, attr.Key, attr.Value))
		return true
	})

	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}

	// Records are often logged from inside Update, where a synchronous
	// Send would deadlock.
	go (*program).Send(StatusMsg{Summary: summary, Level: record.Level})
	return nil
}

func (h *TUIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TUIHandler{
		level:   h.level,
		program: h.program,
		attrs:   append(clone(h.attrs), attrs...),
		groups:  clone(h.groups),
	}
}

func (h *TUIHandler) WithGroup(name string) slog.Handler {
	return &TUIHandler{
		level:   h.level,
		program: h.program,
		attrs:   clone(h.attrs),
		groups:  append(clone(h.groups), name),
	}
}

func clone[T any](source []T) []T {
	if source == nil {
		return nil
	}
	out := make([]T, len(source))
	copy(out, source)
	return out
}

var (
	_ slog.Handler = (*TUIHandler)(nil)
	_ slog.Handler = Tee(nil)
)
