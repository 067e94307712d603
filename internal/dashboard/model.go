package dashboard

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rmacdonaldsmith/streamdash/internal/config"
	"github.com/rmacdonaldsmith/streamdash/internal/controller"
	"github.com/rmacdonaldsmith/streamdash/internal/logging"
	"github.com/rmacdonaldsmith/streamdash/internal/views"
	"github.com/rmacdonaldsmith/streamdash/pkg/endpoint"
	"github.com/rmacdonaldsmith/streamdash/pkg/subscription"
)

// statusFadeDelay is how long a log line stays in the status bar
const statusFadeDelay = 5 * time.Second

type focusRegion int

const (
	focusWidgets focusRegion = iota
	focusURL
	focusQuery
	focusRename
)

// frameMsg is the periodic render tick
type frameMsg time.Time

type statusFadeMsg struct{ seq int }

// Options configures a Model
type Options struct {
	Config    *config.Config
	Connector subscription.Connector
	Logger    *slog.Logger
}

// Model is the bubbletea model of the dashboard
type Model struct {
	connector     subscription.Connector
	logger        *slog.Logger
	notifier      *notifier
	keys          KeyMap
	frameInterval time.Duration
	capacity      int

	base     *url.URL
	urlInput textinput.Model

	workspaces []*Workspace
	selected   int

	focus       focusRegion
	queryEditor textarea.Model
	editing     *Widget
	renameInput textinput.Model

	status      string
	statusLevel slog.Level
	statusSeq   int

	width  int
	height int
}

// New builds the dashboard from cfg. Controllers are created for every
// configured view but nothing connects until the first frame.
func New(opts Options) (Model, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	base, err := endpoint.Parse(cfg.BaseURL)
	if err != nil {
		return Model{}, fmt.Errorf("base url: %w", err)
	}

	urlInput := textinput.New()
	urlInput.Prompt = "WS URL: "
	urlInput.SetValue(base.String())

	renameInput := textinput.New()
	renameInput.Prompt = "name: "
	renameInput.CharLimit = 64

	editor := textarea.New()
	editor.Placeholder = `service = "cpu" and host =~ "web%"`
	editor.ShowLineNumbers = false
	editor.SetHeight(3)

	model := Model{
		connector:     opts.Connector,
		logger:        logger,
		notifier:      newNotifier(),
		keys:          DefaultKeyMap,
		frameInterval: cfg.FrameInterval.Duration,
		capacity:      cfg.DefaultCapacity,
		base:          base,
		urlInput:      urlInput,
		queryEditor:   editor,
		renameInput:   renameInput,
	}
	if model.frameInterval <= 0 {
		model.frameInterval = config.DefaultFrameInterval
	}

	for _, wsCfg := range cfg.Workspaces {
		ws := &Workspace{Name: wsCfg.Name}
		for _, viewCfg := range wsCfg.Views {
			kind, err := views.ParseKind(viewCfg.Kind)
			if err != nil {
				return Model{}, fmt.Errorf("workspace %q: %w", wsCfg.Name, err)
			}
			if _, err := model.addView(ws, kind, viewCfg.Title, viewCfg.Query, viewCfg.Capacity); err != nil {
				return Model{}, err
			}
		}
		ws.focus = 0
		model.workspaces = append(model.workspaces, ws)
	}

	return model, nil
}

func (model *Model) addView(ws *Workspace, kind views.Kind, title, query string, capacity int) (*Widget, error) {
	if capacity == 0 {
		capacity = model.capacity
	}
	c := controller.New(model.connector, controller.Options{
		Base:     model.base,
		Query:    query,
		Capacity: capacity,
		Wakeup:   model.notifier.Wake,
		Logger:   model.logger.With("kind", string(kind)),
	})
	view, err := views.New(kind, c, title)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return ws.add(view), nil
}

// Close retires every subscription
func (model Model) Close() {
	for _, ws := range model.workspaces {
		ws.close()
	}
}

// Workspaces returns the workspaces in tab order
func (model Model) Workspaces() []*Workspace {
	return model.workspaces
}

// Selected returns the active workspace, or nil when there is none
func (model Model) Selected() *Workspace {
	if model.selected < 0 || model.selected >= len(model.workspaces) {
		return nil
	}
	return model.workspaces[model.selected]
}

// BaseAddress returns the base address applied to every controller
func (model Model) BaseAddress() *url.URL {
	return model.base
}

// Status returns the message currently in the status bar
func (model Model) Status() string {
	return model.status
}

func (model Model) Init() tea.Cmd {
	model.tickAll()
	return tea.Batch(model.scheduleFrame(), model.notifier.wait())
}

func (model Model) scheduleFrame() tea.Cmd {
	return tea.Tick(model.frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// tickAll drives every controller of every workspace
func (model Model) tickAll() {
	for _, ws := range model.workspaces {
		ws.tick()
	}
}

func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.urlInput.Width = max(message.Width/2, 20)
		model.queryEditor.SetWidth(max(message.Width-4, 10))
		return model, nil

	case frameMsg:
		model.tickAll()
		return model, model.scheduleFrame()

	case wakeupMsg:
		model.tickAll()
		return model, model.notifier.wait()

	case logging.StatusMsg:
		model.statusSeq++
		model.status = message.Summary
		model.statusLevel = message.Level
		seq := model.statusSeq
		return model, tea.Tick(statusFadeDelay, func(time.Time) tea.Msg {
			return statusFadeMsg{seq: seq}
		})

	case statusFadeMsg:
		if message.seq == model.statusSeq {
			model.status = ""
		}
		return model, nil

	case tea.KeyMsg:
		switch model.focus {
		case focusURL:
			return model.handleURLKeys(message)
		case focusQuery:
			return model.handleQueryKeys(message)
		case focusRename:
			return model.handleRenameKeys(message)
		default:
			return model.handleKeys(message)
		}
	}

	return model, nil
}

func (model Model) handleKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	ws := model.Selected()

	if !key.Matches(message, model.keys.DeleteWorkspace) && ws != nil {
		ws.deleteClicks = 0
	}

	switch {
	case key.Matches(message, model.keys.Quit):
		model.Close()
		return model, tea.Quit

	case key.Matches(message, model.keys.EditURL):
		model.focus = focusURL
		return model, model.urlInput.Focus()

	case key.Matches(message, model.keys.NextWorkspace):
		model.switchWorkspace(1)

	case key.Matches(message, model.keys.PrevWorkspace):
		model.switchWorkspace(-1)

	case key.Matches(message, model.keys.AddWorkspace):
		model.workspaces = append(model.workspaces, &Workspace{Name: DefaultWorkspaceName})
		model.selected = len(model.workspaces) - 1

	case key.Matches(message, model.keys.DeleteWorkspace):
		if ws == nil {
			break
		}
		ws.deleteClicks++
		if ws.deleteClicks < 2 {
			model.logger.Warn("press D again to delete workspace", "workspace", ws.Name)
			break
		}
		ws.close()
		model.workspaces = append(model.workspaces[:model.selected], model.workspaces[model.selected+1:]...)
		if model.selected >= len(model.workspaces) && model.selected > 0 {
			model.selected--
		}

	case key.Matches(message, model.keys.RenameWorkspace):
		if ws == nil {
			break
		}
		model.focus = focusRename
		model.renameInput.SetValue(ws.Name)
		return model, model.renameInput.Focus()

	case key.Matches(message, model.keys.AddLog):
		model.addToSelected(views.KindLog)
	case key.Matches(message, model.keys.AddFlot):
		model.addToSelected(views.KindFlot)
	case key.Matches(message, model.keys.AddBigNumber):
		model.addToSelected(views.KindBigNumber)

	case key.Matches(message, model.keys.FocusNext):
		if ws != nil {
			ws.cycleFocus(1)
		}
	case key.Matches(message, model.keys.FocusPrev):
		if ws != nil {
			ws.cycleFocus(-1)
		}

	case key.Matches(message, model.keys.CloseWidget):
		if widget := focusedWidget(ws); widget != nil {
			ws.remove(widget.ID)
		}

	case key.Matches(message, model.keys.EditQuery):
		widget := focusedWidget(ws)
		if widget == nil {
			break
		}
		model.editing = widget
		model.focus = focusQuery
		model.queryEditor.SetValue(widget.View.Controller().Query())
		return model, model.queryEditor.Focus()

	case key.Matches(message, model.keys.GrowBuffer):
		model.resizeFocused(1)
	case key.Matches(message, model.keys.ShrinkBuffer):
		model.resizeFocused(-1)
	}

	return model, nil
}

func focusedWidget(ws *Workspace) *Widget {
	if ws == nil {
		return nil
	}
	return ws.Focused()
}

func (model *Model) switchWorkspace(delta int) {
	n := len(model.workspaces)
	if n == 0 {
		return
	}
	model.selected = ((model.selected+delta)%n + n) % n
}

func (model *Model) addToSelected(kind views.Kind) {
	ws := model.Selected()
	if ws == nil {
		model.logger.Warn("no workspace, create one with W")
		return
	}
	if _, err := model.addView(ws, kind, "", "", model.capacity); err != nil {
		model.logger.Error("adding view", "error", err)
	}
}

// resizeFocused changes the focused widget's capacity by a tenth
func (model *Model) resizeFocused(sign int) {
	widget := focusedWidget(model.Selected())
	if widget == nil {
		return
	}
	c := widget.View.Controller()
	step := max(c.Capacity()/10, 1)
	c.SetCapacity(c.Capacity() + sign*step)
}

func (model Model) handleURLKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Submit), key.Matches(message, model.keys.Blur), message.Type == tea.KeyTab:
		model.urlInput.Blur()
		model.focus = focusWidgets
		model.applyURL()
		return model, nil
	}

	var cmd tea.Cmd
	model.urlInput, cmd = model.urlInput.Update(message)
	return model, cmd
}

// applyURL adopts the edited address if it parses, otherwise logs and
// keeps the previous base.
func (model *Model) applyURL() {
	text := strings.TrimSpace(model.urlInput.Value())
	base, err := endpoint.Parse(text)
	if err != nil {
		model.logger.Warn("invalid base url", "url", text, "error", err)
		return
	}
	if endpoint.Equal(base, model.base) {
		return
	}

	model.base = base
	for _, ws := range model.workspaces {
		for _, widget := range ws.Widgets {
			widget.View.Controller().SetBaseAddress(base)
		}
	}
	model.logger.Info("base url changed", "url", base.Redacted())
}

func (model Model) handleQueryKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(message, model.keys.Blur) {
		model.queryEditor.Blur()
		model.focus = focusWidgets
		if model.editing != nil {
			c := model.editing.View.Controller()
			c.SetQuery(model.queryEditor.Value())
			c.CommitQuery()
			model.editing = nil
		}
		return model, nil
	}

	var cmd tea.Cmd
	model.queryEditor, cmd = model.queryEditor.Update(message)
	if model.editing != nil {
		model.editing.View.Controller().SetQuery(model.queryEditor.Value())
	}
	return model, cmd
}

func (model Model) handleRenameKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Submit):
		if ws := model.Selected(); ws != nil {
			if name := strings.TrimSpace(model.renameInput.Value()); name != "" {
				ws.Name = name
			}
		}
		fallthrough
	case key.Matches(message, model.keys.Blur):
		model.renameInput.Blur()
		model.focus = focusWidgets
		return model, nil
	}

	var cmd tea.Cmd
	model.renameInput, cmd = model.renameInput.Update(message)
	return model, cmd
}
