package dashboard

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/rmacdonaldsmith/streamdash/internal/controller"
	"github.com/rmacdonaldsmith/streamdash/internal/views"
	"github.com/rmacdonaldsmith/streamdash/pkg/endpoint"
)

// widgetChrome is the border plus header line around each widget body
const widgetChrome = 3

func (model Model) View() string {
	if model.width == 0 {
		return "starting..."
	}
	theme := views.DefaultTheme

	sections := []string{model.renderTopBar(theme)}

	editor := ""
	switch model.focus {
	case focusQuery:
		editor = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Focused).
			Render(model.queryEditor.View())
	case focusRename:
		editor = model.renameInput.View()
	}

	bodyHeight := model.height - 2
	if editor != "" {
		bodyHeight -= lipgloss.Height(editor)
	}
	sections = append(sections, model.renderBody(theme, max(bodyHeight, 1)))
	if editor != "" {
		sections = append(sections, editor)
	}
	sections = append(sections, model.renderStatus(theme))

	return strings.Join(sections, "\n")
}

func (model Model) renderTopBar(theme views.Theme) string {
	input := model.urlInput.View()
	if _, err := endpoint.Parse(model.urlInput.Value()); err != nil {
		input = lipgloss.NewStyle().Foreground(theme.StateCritical).Render(input)
	}

	tabs := make([]string, 0, len(model.workspaces))
	for i, ws := range model.workspaces {
		style := lipgloss.NewStyle().Padding(0, 1).Foreground(theme.FaintText)
		if i == model.selected {
			style = style.Bold(true).Foreground(theme.Header).Underline(true)
		}
		tabs = append(tabs, style.Render(ws.Name))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, input, "  │", strings.Join(tabs, ""))
}

func (model Model) renderBody(theme views.Theme, height int) string {
	ws := model.Selected()
	if ws == nil {
		return placeholderLine(theme, "There is no workspace, create one with W.", model.width)
	}
	if len(ws.Widgets) == 0 {
		return placeholderLine(theme, "Empty workspace: add a log (l), flot (f), or big number (b).", model.width)
	}

	per := max(height/len(ws.Widgets), widgetChrome+1)
	boxes := make([]string, 0, len(ws.Widgets))
	used := 0
	for i, widget := range ws.Widgets {
		if used+per > height && i > 0 {
			break
		}
		boxes = append(boxes, model.renderWidget(theme, widget, i == ws.focus, model.width, per))
		used += per
	}
	return lipgloss.JoinVertical(lipgloss.Left, boxes...)
}

func (model Model) renderWidget(theme views.Theme, widget *Widget, focused bool, width, height int) string {
	innerWidth := max(width-2, 1)
	innerHeight := max(height-widgetChrome, 1)

	c := widget.View.Controller()
	state := c.State().String()
	if c.PendingEndpoint() != nil {
		state = "connecting"
	}
	header := fmt.Sprintf("%s · %s · %s · limit %d · %s",
		widget.View.Title(), widget.View.Kind(), state, c.Capacity(), queryLabel(c))
	headerLine := lipgloss.NewStyle().Bold(true).Foreground(theme.Header).Render(truncate(header, innerWidth))
	if err := c.ConnectionError(); err != nil {
		headerLine = lipgloss.NewStyle().Foreground(theme.StateCritical).Render(truncate(header+" · "+err.Error(), innerWidth))
	}

	body := widget.View.Render(innerWidth, innerHeight)
	border := theme.Border
	if focused {
		border = theme.Focused
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(innerWidth).
		Render(headerLine + "\n" + body)
}

func queryLabel(c *controller.Controller) string {
	q := strings.TrimSpace(c.Query())
	if q == "" {
		return "(no query)"
	}
	return strings.ReplaceAll(q, "\n", " ")
}

func (model Model) renderStatus(theme views.Theme) string {
	if model.status != "" {
		color := theme.StateWarning
		if model.statusLevel >= slog.LevelError {
			color = theme.StateCritical
		}
		return lipgloss.NewStyle().Foreground(color).Render(truncate(model.status, model.width))
	}

	var help []key.Binding
	switch model.focus {
	case focusWidgets:
		help = model.keys.ShortHelp()
	default:
		help = []key.Binding{model.keys.Submit, model.keys.Blur}
	}

	parts := make([]string, 0, len(help))
	for _, b := range help {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return lipgloss.NewStyle().Foreground(theme.FaintText).Render(truncate(strings.Join(parts, " · "), model.width))
}

func placeholderLine(theme views.Theme, msg string, width int) string {
	return lipgloss.NewStyle().Foreground(theme.FaintText).Width(width).Align(lipgloss.Center).Render(msg)
}

func truncate(s string, width int) string {
	return ansi.Truncate(s, width, "…")
}
