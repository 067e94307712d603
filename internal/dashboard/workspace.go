package dashboard

import (
	"github.com/google/uuid"

	"github.com/rmacdonaldsmith/streamdash/internal/views"
)

// DefaultWorkspaceName names workspaces created from the keyboard
const DefaultWorkspaceName = "Riemann"

// Widget is one view placed on a workspace
type Widget struct {
	ID   uuid.UUID
	View views.View
}

// Workspace is a named set of widgets
type Workspace struct {
	Name    string
	Widgets []*Widget

	focus        int
	deleteClicks int
}

// Focused returns the focused widget, or nil when the workspace is empty
func (w *Workspace) Focused() *Widget {
	if len(w.Widgets) == 0 {
		return nil
	}
	return w.Widgets[w.focus]
}

func (w *Workspace) add(view views.View) *Widget {
	widget := &Widget{ID: uuid.New(), View: view}
	w.Widgets = append(w.Widgets, widget)
	w.focus = len(w.Widgets) - 1
	return widget
}

// remove closes the widget's controller and drops it
func (w *Workspace) remove(id uuid.UUID) bool {
	for i, widget := range w.Widgets {
		if widget.ID != id {
			continue
		}
		_ = widget.View.Controller().Close()
		w.Widgets = append(w.Widgets[:i], w.Widgets[i+1:]...)
		if w.focus >= len(w.Widgets) && w.focus > 0 {
			w.focus--
		}
		return true
	}
	return false
}

func (w *Workspace) cycleFocus(delta int) {
	n := len(w.Widgets)
	if n == 0 {
		return
	}
	w.focus = ((w.focus+delta)%n + n) % n
}

// close closes every controller of the workspace
func (w *Workspace) close() {
	for _, widget := range w.Widgets {
		_ = widget.View.Controller().Close()
	}
}

// tick drives every controller once
func (w *Workspace) tick() {
	for _, widget := range w.Widgets {
		widget.View.Controller().Tick()
	}
}
