package dashboard

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds every binding of the dashboard
type KeyMap struct {
	Quit key.Binding

	EditURL key.Binding

	NextWorkspace   key.Binding
	PrevWorkspace   key.Binding
	AddWorkspace    key.Binding
	DeleteWorkspace key.Binding
	RenameWorkspace key.Binding

	AddLog       key.Binding
	AddFlot      key.Binding
	AddBigNumber key.Binding
	FocusNext    key.Binding
	FocusPrev    key.Binding
	CloseWidget  key.Binding
	EditQuery    key.Binding
	GrowBuffer   key.Binding
	ShrinkBuffer key.Binding

	// Active while an input has focus
	Submit key.Binding
	Blur   key.Binding
}

// DefaultKeyMap is the built-in binding set
var DefaultKeyMap = KeyMap{
	Quit:            key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	EditURL:         key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "url")),
	NextWorkspace:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next ws")),
	PrevWorkspace:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev ws")),
	AddWorkspace:    key.NewBinding(key.WithKeys("W"), key.WithHelp("W", "new ws")),
	DeleteWorkspace: key.NewBinding(key.WithKeys("D"), key.WithHelp("D D", "delete ws")),
	RenameWorkspace: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
	AddLog:          key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "log")),
	AddFlot:         key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "flot")),
	AddBigNumber:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "big number")),
	FocusNext:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
	FocusPrev:       key.NewBinding(key.WithKeys("shift+tab")),
	CloseWidget:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close")),
	EditQuery:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "query")),
	GrowBuffer:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "limit")),
	ShrinkBuffer:    key.NewBinding(key.WithKeys("-")),
	Submit:          key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
	Blur:            key.NewBinding(key.WithKeys("esc", "ctrl+s"), key.WithHelp("esc", "done")),
}

// ShortHelp lists the bindings shown in the help bar
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Quit, k.EditURL, k.AddLog, k.AddFlot, k.AddBigNumber, k.EditQuery,
		k.FocusNext, k.GrowBuffer, k.CloseWidget, k.PrevWorkspace, k.NextWorkspace,
		k.AddWorkspace, k.RenameWorkspace, k.DeleteWorkspace,
	}
}
