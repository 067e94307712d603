package views

import (
	"fmt"
	"strings"

	"github.com/rmacdonaldsmith/streamdash/internal/controller"
	"github.com/rmacdonaldsmith/streamdash/pkg/event"
)

const (
	hostWidth    = 16
	serviceWidth = 20
	stateWidth   = 9
	metricWidth  = 10
)

// Log shows the newest entries as a table, oldest at the top
type Log struct {
	base
}

func (v *Log) Kind() Kind { return KindLog }

func (v *Log) Render(width, height int) string {
	if height <= 0 || width <= 0 {
		return ""
	}

	lines := []string{styleFor(v.theme.Header).Bold(true).Render(v.row("host", "service", "state", "metric", "description", width))}

	entries := v.controller.Snapshot()
	if len(entries) == 0 {
		lines = append(lines, placeholder(v.theme, "waiting for events", width))
		return strings.Join(lines, "\n")
	}

	rows := height - 1
	if rows < len(entries) {
		entries = entries[len(entries)-rows:]
	}
	for _, entry := range entries {
		lines = append(lines, v.renderEntry(entry, width))
	}
	return strings.Join(lines, "\n")
}

func (v *Log) renderEntry(entry controller.Entry, width int) string {
	if entry.Err != nil {
		return styleFor(v.theme.StateCritical).Render(fit("! "+entry.Err.Error(), width))
	}

	ev := entry.Event
	line := v.row(ev.Host, ev.Service, ev.State, formatMetric(ev), ev.Description, width)
	if ev.State != "" && !ev.IsOK() {
		return styleFor(v.theme.StateCritical).Render(line)
	}
	return styleFor(v.theme.NormalText).Render(line)
}

func (v *Log) row(host, service, state, metric, description string, width int) string {
	cols := []struct {
		text  string
		width int
	}{
		{host, hostWidth},
		{service, serviceWidth},
		{state, stateWidth},
		{metric, metricWidth},
	}

	var b strings.Builder
	used := 0
	for _, col := range cols {
		if used+col.width+1 > width {
			break
		}
		b.WriteString(fit(col.text, col.width))
		b.WriteByte(' ')
		used += col.width + 1
	}
	b.WriteString(fit(description, width-used))
	return b.String()
}

func formatMetric(ev *event.Event) string {
	metric, ok := ev.MetricValue()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%.2f", metric)
}
