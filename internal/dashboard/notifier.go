package dashboard

import tea "github.com/charmbracelet/bubbletea"

// wakeupMsg is delivered when at least one subscription has queued data
type wakeupMsg struct{}

// notifier coalesces wakeups from subscription goroutines into at most
// one pending wakeupMsg.
type notifier struct {
	ch chan struct{}
}

func newNotifier() *notifier {
	return &notifier{ch: make(chan struct{}, 1)}
}

// Wake never blocks
func (n *notifier) Wake() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// wait returns a command that blocks until the next wakeup
func (n *notifier) wait() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return wakeupMsg{}
	}
}
