package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/rmacdonaldsmith/streamdash/internal/buffer"
	"github.com/rmacdonaldsmith/streamdash/pkg/endpoint"
	"github.com/rmacdonaldsmith/streamdash/pkg/event"
	"github.com/rmacdonaldsmith/streamdash/pkg/subscription"
)

const (
	// DefaultCapacity is the number of entries kept when none is configured
	DefaultCapacity = 1000
	// MinCapacity is the smallest accepted capacity
	MinCapacity = 10
	// MaxCapacity is the largest accepted capacity
	MaxCapacity = 10000
)

var (
	// ErrStreamClosed is recorded when the server ends the stream
	ErrStreamClosed = errors.New("stream closed by server")
)

// State is the connection state of a Controller
type State int

const (
	// Disconnected means no subscription is live
	Disconnected State = iota
	// Connected means a subscription to Endpoint() has opened
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Entry is one buffered item: a decoded event or an inline decode failure.
type Entry struct {
	// Seq increases by one for every entry the controller has produced
	Seq      uint64
	Received time.Time
	Event    *event.Event
	Err      error
}

// Options configures a Controller
type Options struct {
	Base     *url.URL
	Query    string
	Capacity int

	// Wakeup is handed to every subscription; it must not block
	Wakeup func()

	Logger *slog.Logger
	Clock  func() time.Time
}

// Stats counts what a controller has seen since it was created
type Stats struct {
	Events        uint64
	DecodeErrors  uint64
	Evicted       uint64
	Connects      uint64
	ConnectErrors uint64
}

// Controller owns at most one subscription and one buffer
type Controller struct {
	connector subscription.Connector
	wakeup    func()
	logger    *slog.Logger
	clock     func() time.Time

	base          *url.URL
	query         string
	commitPending bool

	sub     subscription.Subscription
	pending subscription.Subscription
	state   State
	buffer  *buffer.Buffer[Entry]
	connErr error
	seq     uint64
	stats   Stats
	closed  bool
}

// New creates a Disconnected controller. Nothing is dialled until Tick.
func New(connector subscription.Connector, opts Options) *Controller {
	if opts.Capacity == 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Wakeup == nil {
		opts.Wakeup = func() {}
	}

	return &Controller{
		connector: connector,
		wakeup:    opts.Wakeup,
		logger:    opts.Logger,
		clock:     opts.Clock,
		base:      opts.Base,
		query:     opts.Query,
		buffer:    buffer.New[Entry](ClampCapacity(opts.Capacity)),
	}
}

// ClampCapacity bounds n to [MinCapacity, MaxCapacity]
func ClampCapacity(n int) int {
	if n < MinCapacity {
		return MinCapacity
	}
	if n > MaxCapacity {
		return MaxCapacity
	}
	return n
}

// SetQuery updates the query text being edited. It does not reconnect by
// itself; see CommitQuery.
func (c *Controller) SetQuery(text string) {
	c.query = text
}

// Query returns the current query text
func (c *Controller) Query() string {
	return c.query
}

// CommitQuery records that the query editor lost focus. The next Tick
// reconnects with the current query if it is non-empty.
func (c *Controller) CommitQuery() {
	c.commitPending = true
}

// SetBaseAddress replaces the externally supplied base address
func (c *Controller) SetBaseAddress(base *url.URL) {
	c.base = base
}

// BaseAddress returns the base address in use
func (c *Controller) BaseAddress() *url.URL {
	return c.base
}

// SetCapacity changes the buffer bound, clamped to the accepted range.
// It applies on the next eviction pass and never reconnects.
func (c *Controller) SetCapacity(n int) {
	c.buffer.SetCapacity(ClampCapacity(n))
}

// Capacity returns the buffer bound
func (c *Controller) Capacity() int {
	return c.buffer.Capacity()
}

// State returns the connection state
func (c *Controller) State() State {
	return c.state
}

// Endpoint returns the endpoint of the live subscription, or nil
func (c *Controller) Endpoint() *url.URL {
	if c.sub == nil {
		return nil
	}
	return c.sub.Endpoint()
}

// PendingEndpoint returns the endpoint of a subscription that has been
// dialled but not yet opened, or nil.
func (c *Controller) PendingEndpoint() *url.URL {
	if c.pending == nil {
		return nil
	}
	return c.pending.Endpoint()
}

// ConnectionError returns the last connection problem, if any
func (c *Controller) ConnectionError() error {
	return c.connErr
}

// Snapshot returns the buffered entries, oldest first
func (c *Controller) Snapshot() []Entry {
	return c.buffer.Snapshot()
}

// Latest returns the newest buffered entry
func (c *Controller) Latest() (Entry, bool) {
	return c.buffer.Last()
}

// Stats returns the controller counters
func (c *Controller) Stats() Stats {
	return c.stats
}

// Closed reports whether Close has been called
func (c *Controller) Closed() bool {
	return c.closed
}

// Close retires the subscription. The controller never reconnects again.
func (c *Controller) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.state = Disconnected
	c.dropPending()
	return c.retire()
}

// Tick performs one reconnect/drain/evict pass. It never blocks.
func (c *Controller) Tick() {
	if c.closed {
		return
	}

	c.maybeReconnect()
	c.settlePending()

	if c.state == Connected {
		c.drain()
	}
}

func (c *Controller) maybeReconnect() {
	commit := c.commitPending
	c.commitPending = false

	if c.base == nil {
		return
	}
	if _, err := endpoint.BaseOf(c.base); err != nil {
		c.setConnErr(err)
		return
	}
	if errors.Is(c.connErr, endpoint.ErrInvalidBase) {
		c.connErr = nil
	}

	desired := endpoint.Build(c.base, true, c.query)

	// A dialled but unopened subscription counts as the current target
	current := c.Endpoint()
	if c.pending != nil {
		current = c.pending.Endpoint()
	}

	reconnect := current == nil ||
		!endpoint.SameBase(current, desired) ||
		(commit && c.query != "")
	if !reconnect {
		return
	}

	sub, err := c.connector.Connect(desired, c.wakeup)
	if err != nil {
		c.stats.ConnectErrors++
		c.setConnErr(err)
		return
	}

	c.dropPending()
	c.pending = sub
	c.logger.Debug("dialling", "endpoint", desired.Redacted())
}

// settlePending adopts the pending subscription once it opens or delivers
// data, or discards it if it fails first. The live subscription and its
// buffer are untouched until adoption.
func (c *Controller) settlePending() {
	for c.pending != nil {
		msg, ok := c.pending.PollNext()
		if !ok {
			return
		}

		switch msg.Kind {
		case subscription.Error, subscription.Closed:
			c.rejectPending(msg.Err)
		default:
			c.adopt()
			c.handle(msg)
		}
	}
}

func (c *Controller) adopt() {
	if err := c.retire(); err != nil {
		c.logger.Debug("retiring subscription", "error", err)
	}
	c.sub = c.pending
	c.pending = nil
	c.state = Connected
	c.connErr = nil
	c.buffer.Clear()
	c.stats.Connects++
	c.logger.Info("subscribed", "endpoint", c.sub.Endpoint().Redacted())
}

func (c *Controller) rejectPending(err error) {
	target := c.pending.Endpoint()
	c.dropPending()
	c.stats.ConnectErrors++

	if err == nil {
		err = ErrStreamClosed
	}
	var connectErr *subscription.ConnectError
	if !errors.As(err, &connectErr) {
		err = subscription.NewConnectError(target, err)
	}
	c.setConnErr(err)
}

func (c *Controller) dropPending() {
	if c.pending == nil {
		return
	}
	sub := c.pending
	c.pending = nil
	if err := sub.Close(); err != nil {
		c.logger.Debug("dropping pending subscription", "error", err)
	}
}

func (c *Controller) retire() error {
	if c.sub == nil {
		return nil
	}
	sub := c.sub
	c.sub = nil
	return sub.Close()
}

// drain moves everything queued on the subscription into the buffer,
// then evicts once.
func (c *Controller) drain() {
	for {
		msg, ok := c.sub.PollNext()
		if !ok {
			break
		}
		c.handle(msg)
	}

	c.stats.Evicted += uint64(c.buffer.EvictToCapacity())
}

func (c *Controller) handle(msg subscription.Message) {
	switch msg.Kind {
	case subscription.Text:
		ev, err := event.Decode(msg.Text)
		if err != nil {
			c.appendError(err)
			return
		}
		c.append(Entry{Event: ev})
		c.stats.Events++
	case subscription.Binary:
		c.appendError(event.NewNonTextError(msg.Data))
	case subscription.Opened:
		c.connErr = nil
	case subscription.Error:
		c.setConnErr(msg.Err)
	case subscription.Closed:
		if msg.Err != nil {
			c.setConnErr(fmt.Errorf("%w: %v", ErrStreamClosed, msg.Err))
		} else {
			c.setConnErr(ErrStreamClosed)
		}
	}
}

func (c *Controller) append(entry Entry) {
	c.seq++
	entry.Seq = c.seq
	entry.Received = c.clock()
	c.buffer.Append(entry)
}

func (c *Controller) appendError(err error) {
	c.stats.DecodeErrors++
	c.logger.Debug("undecodable message", "error", err)
	c.append(Entry{Err: err})
}

// setConnErr records err and logs it when it differs from the previous one.
func (c *Controller) setConnErr(err error) {
	if c.connErr == nil || c.connErr.Error() != err.Error() {
		c.logger.Warn("subscription problem", "error", err)
	}
	c.connErr = err
}
