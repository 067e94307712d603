package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// NoMetric is shown when the latest event carries no metric
const NoMetric = "-.--"

// BigNumber shows the metric of the most recent event
type BigNumber struct {
	base
}

func (v *BigNumber) Kind() Kind { return KindBigNumber }

// Value returns the formatted metric and the state of the latest event
func (v *BigNumber) Value() (string, string) {
	entries := v.controller.Snapshot()
	for i := len(entries) - 1; i >= 0; i-- {
		ev := entries[i].Event
		if ev == nil {
			continue
		}
		metric, ok := ev.MetricValue()
		if !ok {
			return NoMetric, ev.State
		}
		return fmt.Sprintf("%.2f", metric), ev.State
	}
	return NoMetric, ""
}

func (v *BigNumber) Render(width, height int) string {
	if height <= 0 || width <= 0 {
		return ""
	}

	value, state := v.Value()
	number := lipgloss.NewStyle().
		Bold(true).
		Foreground(v.theme.StateColor(state)).
		Width(width).
		Align(lipgloss.Center).
		Render(fit(value, width))

	lines := []string{number}
	if height > 1 && state != "" {
		lines = append(lines, styleFor(v.theme.FaintText).Width(width).Align(lipgloss.Center).Render(fit(state, width)))
	}
	return strings.Join(lines, "\n")
}
