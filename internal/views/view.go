package views

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/rmacdonaldsmith/streamdash/internal/controller"
)

// Kind names a widget type
type Kind string

const (
	KindLog       Kind = "log"
	KindFlot      Kind = "flot"
	KindBigNumber Kind = "big-number"
)

// Kinds lists every widget kind in menu order
var Kinds = []Kind{KindLog, KindFlot, KindBigNumber}

var (
	ErrUnknownKind = errors.New("unknown view kind")
)

// ParseKind validates a kind name
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// DefaultTitle is shown when a view is created without a title
func (k Kind) DefaultTitle() string {
	switch k {
	case KindLog:
		return "Log"
	case KindFlot:
		return "Flot Graph"
	case KindBigNumber:
		return "Big Number"
	default:
		return string(k)
	}
}

// View is one widget on a workspace
type View interface {
	Title() string
	SetTitle(title string)
	Kind() Kind
	Controller() *controller.Controller
	// Render draws the view into at most width columns and height lines
	Render(width, height int) string
}

// New creates a view of kind bound to c
func New(kind Kind, c *controller.Controller, title string) (View, error) {
	if title == "" {
		title = kind.DefaultTitle()
	}
	b := base{title: title, controller: c, theme: DefaultTheme}

	switch kind {
	case KindLog:
		return &Log{base: b}, nil
	case KindFlot:
		return &Flot{base: b}, nil
	case KindBigNumber:
		return &BigNumber{base: b}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

type base struct {
	title      string
	controller *controller.Controller
	theme      Theme
}

func (b *base) Title() string                      { return b.title }
func (b *base) SetTitle(title string)              { b.title = title }
func (b *base) Controller() *controller.Controller { return b.controller }

// fit truncates or pads s to exactly width cells
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\n", " ")
	s = ansi.Truncate(s, width, "…")
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// placeholder fills an empty view with a faint message
func placeholder(theme Theme, msg string, width int) string {
	return styleFor(theme.FaintText).Render(fit(msg, width))
}

var (
	_ View = (*Log)(nil)
	_ View = (*Flot)(nil)
	_ View = (*BigNumber)(nil)
)
