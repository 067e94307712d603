package dashboard

import (
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/streamdash/internal/config"
	"github.com/rmacdonaldsmith/streamdash/internal/controller"
	"github.com/rmacdonaldsmith/streamdash/internal/logging"
	"github.com/rmacdonaldsmith/streamdash/internal/views"
	"github.com/rmacdonaldsmith/streamdash/pkg/subscription"
)

type recordedSubscription struct {
	endpoint *url.URL
	queue    []subscription.Message
	closed   bool
}

func (s *recordedSubscription) PollNext() (subscription.Message, bool) {
	if s.closed || len(s.queue) == 0 {
		return subscription.Message{}, false
	}
	msg := s.queue[0]
	s.queue = s.queue[1:]
	return msg, true
}

func (s *recordedSubscription) Endpoint() *url.URL { return s.endpoint }

func (s *recordedSubscription) Close() error {
	s.closed = true
	return nil
}

type recordingConnector struct {
	subs []*recordedSubscription
}

func (c *recordingConnector) Connect(u *url.URL, wakeup func()) (subscription.Subscription, error) {
	sub := &recordedSubscription{endpoint: u, queue: []subscription.Message{{Kind: subscription.Opened}}}
	c.subs = append(c.subs, sub)
	return sub, nil
}

func (c *recordingConnector) last() *recordedSubscription {
	return c.subs[len(c.subs)-1]
}

func newModel(t *testing.T, cfg *config.Config) (Model, *recordingConnector) {
	t.Helper()
	connector := &recordingConnector{}
	model, err := New(Options{Config: cfg, Connector: connector})
	require.NoError(t, err)
	return model, connector
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, model Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := model.Update(msg)
		var ok bool
		model, ok = updated.(Model)
		require.True(t, ok)
	}
	return model
}

func frame() tea.Msg { return frameMsg(time.Now()) }

func TestNew_FromConfig(t *testing.T) {
	cfg := &config.Config{
		Workspaces: []config.WorkspaceConfig{
			{Name: "web", Views: []config.ViewConfig{
				{Kind: "log", Query: "true"},
				{Kind: "big-number", Title: "load", Query: `service = "load"`, Capacity: 50},
			}},
			{Name: "db"},
		},
	}
	cfg.SetDefaults()

	model, connector := newModel(t, cfg)
	require.Len(t, model.Workspaces(), 2)
	web := model.Workspaces()[0]
	require.Len(t, web.Widgets, 2)
	assert.Equal(t, "load", web.Widgets[1].View.Title())
	assert.Equal(t, 50, web.Widgets[1].View.Controller().Capacity())
	assert.NotEqual(t, web.Widgets[0].ID, web.Widgets[1].ID)
	assert.Same(t, web.Widgets[0], web.Focused())

	model.Init()
	require.Len(t, connector.subs, 2, "the first frame subscribes every view")
	assert.Equal(t, "ws://localhost:5556/index/?subscribe=true&query=true", connector.subs[0].endpoint.String())

	t.Run("invalid_base", func(t *testing.T) {
		_, err := New(Options{Config: &config.Config{BaseURL: "mailto:x"}})
		assert.Error(t, err)
	})

	t.Run("unknown_kind", func(t *testing.T) {
		bad := &config.Config{Workspaces: []config.WorkspaceConfig{{Name: "x", Views: []config.ViewConfig{{Kind: "pie"}}}}}
		bad.SetDefaults()
		_, err := New(Options{Config: bad})
		assert.ErrorIs(t, err, views.ErrUnknownKind)
	})
}

func TestModel_FramesDrainControllers(t *testing.T) {
	model, connector := newModel(t, nil)
	model = send(t, model, frame())
	require.Len(t, connector.subs, 1)

	connector.last().queue = append(connector.last().queue,
		subscription.Message{Kind: subscription.Text, Text: `{"host":"a","metric":1}`})

	updated, cmd := model.Update(wakeupMsg{})
	model = updated.(Model)
	assert.NotNil(t, cmd, "a wakeup re-arms the notifier")

	c := model.Selected().Focused().View.Controller()
	require.Len(t, c.Snapshot(), 1)
	assert.Equal(t, "a", c.Snapshot()[0].Event.Host)
}

func TestModel_Widgets(t *testing.T) {
	model, connector := newModel(t, nil)
	ws := model.Selected()
	require.NotNil(t, ws)
	require.Len(t, ws.Widgets, 1)

	model = send(t, model, runes("f"), runes("b"))
	require.Len(t, ws.Widgets, 3)
	assert.Equal(t, views.KindFlot, ws.Widgets[1].View.Kind())
	assert.Equal(t, views.KindBigNumber, ws.Focused().View.Kind(), "new widgets take focus")

	model = send(t, model, tea.KeyMsg{Type: tea.KeyTab})
	assert.Same(t, ws.Widgets[0], ws.Focused())

	model = send(t, model, frame())
	first := ws.Widgets[0]
	second := ws.Widgets[1]
	model = send(t, model, runes("x"))
	require.Len(t, ws.Widgets, 2)
	assert.True(t, first.View.Controller().Closed())
	assert.Same(t, second, ws.Widgets[0], "closing a widget does not change the others")
	assert.True(t, connector.subs[0].closed)
}

func TestModel_EditQueryCommitsOnBlur(t *testing.T) {
	model, connector := newModel(t, nil)
	model = send(t, model, frame())
	require.Len(t, connector.subs, 1)

	model = send(t, model, runes("e"))
	assert.Equal(t, focusQuery, model.focus)

	model.queryEditor.SetValue("")
	model = send(t, model, runes("tagged"), frame())
	assert.Len(t, connector.subs, 1, "typing does not reconnect")

	model = send(t, model, tea.KeyMsg{Type: tea.KeyEsc}, frame())
	assert.Equal(t, focusWidgets, model.focus)
	require.Len(t, connector.subs, 2)
	assert.Equal(t, "tagged", connector.last().endpoint.Query().Get("query"))
	assert.True(t, connector.subs[0].closed)
}

func TestModel_BaseURL(t *testing.T) {
	model, connector := newModel(t, nil)
	model = send(t, model, frame())

	t.Run("invalid_is_ignored", func(t *testing.T) {
		model = send(t, model, runes("u"))
		model.urlInput.SetValue("not a url")
		model = send(t, model, tea.KeyMsg{Type: tea.KeyEnter}, frame())
		assert.Equal(t, "ws://localhost:5556", model.BaseAddress().String())
		assert.Len(t, connector.subs, 1)
		assert.Contains(t, model.View(), "starting", "no size yet")
	})

	t.Run("applied_on_enter", func(t *testing.T) {
		model = send(t, model, runes("u"))
		model.urlInput.SetValue("ws://riemann:5556/")
		model = send(t, model, tea.KeyMsg{Type: tea.KeyEnter}, frame())
		assert.Equal(t, "ws://riemann:5556/", model.BaseAddress().String())
		require.Len(t, connector.subs, 2)
		assert.Equal(t, "riemann:5556", connector.last().endpoint.Host)
	})

	t.Run("applied_on_focus_loss", func(t *testing.T) {
		model = send(t, model, runes("u"))
		model.urlInput.SetValue("ws://other:5556")
		model = send(t, model, tea.KeyMsg{Type: tea.KeyTab}, frame())
		assert.Equal(t, focusWidgets, model.focus)
		assert.Equal(t, "other:5556", connector.last().endpoint.Host)
	})
}

func TestModel_Workspaces(t *testing.T) {
	model, _ := newModel(t, nil)
	model = send(t, model, runes("W"))
	require.Len(t, model.Workspaces(), 2)
	assert.Equal(t, DefaultWorkspaceName, model.Selected().Name)

	model = send(t, model, runes("r"))
	model.renameInput.SetValue("ops")
	model = send(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "ops", model.Selected().Name)

	model = send(t, model, runes("]"))
	assert.Equal(t, "main", model.Selected().Name)
	first := model.Selected()
	c := first.Widgets[0].View.Controller()

	model = send(t, model, runes("D"))
	assert.Len(t, model.Workspaces(), 2, "one press only arms the delete")
	model = send(t, model, runes("l"), runes("D"))
	assert.Len(t, model.Workspaces(), 2, "another key disarms it")

	model = send(t, model, runes("D"))
	require.Len(t, model.Workspaces(), 1)
	assert.True(t, c.Closed())
	assert.Equal(t, "ops", model.Selected().Name)

	model = send(t, model, runes("D"), runes("D"))
	assert.Empty(t, model.Workspaces())
	assert.Nil(t, model.Selected())

	model = send(t, model, tea.WindowSizeMsg{Width: 80, Height: 20}, runes("l"))
	assert.Contains(t, model.View(), "There is no workspace")
}

func TestModel_Capacity(t *testing.T) {
	model, _ := newModel(t, nil)
	c := model.Selected().Focused().View.Controller()
	require.Equal(t, 1000, c.Capacity())

	model = send(t, model, runes("+"))
	assert.Equal(t, 1100, c.Capacity())
	model = send(t, model, runes("-"), runes("-"))
	assert.Equal(t, 891, c.Capacity())

	for i := 0; i < 100; i++ {
		model = send(t, model, runes("-"))
	}
	assert.Equal(t, controller.MinCapacity, c.Capacity())
}

func TestModel_Status(t *testing.T) {
	model, _ := newModel(t, nil)
	model = send(t, model, logging.StatusMsg{Summary: "subscription problem", Level: slog.LevelWarn})
	assert.Equal(t, "subscription problem", model.Status())

	model = send(t, model, statusFadeMsg{seq: model.statusSeq - 1})
	assert.NotEmpty(t, model.Status(), "a stale fade leaves newer messages")

	model = send(t, model, statusFadeMsg{seq: model.statusSeq})
	assert.Empty(t, model.Status())
}

func TestModel_View(t *testing.T) {
	model, connector := newModel(t, nil)
	model = send(t, model, tea.WindowSizeMsg{Width: 100, Height: 30}, frame())
	connector.last().queue = append(connector.last().queue,
		subscription.Message{Kind: subscription.Text, Text: `{"host":"web-7","service":"cpu","state":"ok","metric":0.3}`})
	model = send(t, model, frame())

	out := model.View()
	assert.Contains(t, out, "WS URL")
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "all events")
	assert.Contains(t, out, "web-7")
	assert.Contains(t, out, "q quit")
	assert.LessOrEqual(t, len(strings.Split(out, "\n")), 30)
}

func TestNotifier_Coalesces(t *testing.T) {
	n := newNotifier()
	n.Wake()
	n.Wake()
	n.Wake()

	assert.Equal(t, wakeupMsg{}, n.wait()())

	select {
	case <-n.ch:
		t.Fatal("wakeups were not coalesced")
	default:
	}
}
