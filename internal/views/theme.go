package views

import "github.com/charmbracelet/lipgloss"

// Theme is the palette shared by every view. Colors are ANSI 256 codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Header     lipgloss.Color
	Border     lipgloss.Color
	Focused    lipgloss.Color

	StateOK       lipgloss.Color
	StateWarning  lipgloss.Color
	StateCritical lipgloss.Color
	StateUnknown  lipgloss.Color

	// Series colors cycle for flot lines
	Series []lipgloss.Color
}

// DefaultTheme suits dark terminals
var DefaultTheme = Theme{
	NormalText:    lipgloss.Color("252"),
	FaintText:     lipgloss.Color("243"),
	Header:        lipgloss.Color("75"),
	Border:        lipgloss.Color("238"),
	Focused:       lipgloss.Color("214"),
	StateOK:       lipgloss.Color("78"),
	StateWarning:  lipgloss.Color("220"),
	StateCritical: lipgloss.Color("196"),
	StateUnknown:  lipgloss.Color("247"),
	Series: []lipgloss.Color{
		lipgloss.Color("75"), lipgloss.Color("214"), lipgloss.Color("141"),
		lipgloss.Color("78"), lipgloss.Color("203"), lipgloss.Color("45"),
	},
}

// StateColor maps a Riemann state to a color. An empty state has none.
func (t Theme) StateColor(state string) lipgloss.Color {
	switch state {
	case "ok":
		return t.StateOK
	case "warning":
		return t.StateWarning
	case "critical", "error", "failure":
		return t.StateCritical
	case "":
		return t.NormalText
	default:
		return t.StateUnknown
	}
}

// SeriesColor returns the color for the i-th series
func (t Theme) SeriesColor(i int) lipgloss.Color {
	if len(t.Series) == 0 {
		return t.NormalText
	}
	return t.Series[i%len(t.Series)]
}

func styleFor(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(color)
}
