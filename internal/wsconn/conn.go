package wsconn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rmacdonaldsmith/streamdash/pkg/subscription"
)

// Dialer creates websocket subscriptions
type Dialer struct {
	config Config
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewDialer creates a Dialer. A nil logger discards log output.
func NewDialer(config Config, logger *slog.Logger) *Dialer {
	config.SetDefaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dialer{
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
		},
		logger: logger,
	}
}

// releasableDial ties each socket to release rather than to the dial
// context, which the websocket dialer cancels as soon as the handshake
// returns. Retiring a connection then also aborts a handshake that is
// still waiting on the server.
func releasableDial(release context.Context) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		var dialer net.Dialer
		netConn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		context.AfterFunc(release, func() { netConn.Close() })
		return netConn, nil
	}
}

// Connect validates endpoint and starts the handshake in the background.
// It never blocks on the network: handshake failures arrive later as an
// Error message carrying a *subscription.ConnectError.
func (d *Dialer) Connect(endpoint *url.URL, wakeup func()) (subscription.Subscription, error) {
	if err := validateEndpoint(endpoint); err != nil {
		return nil, subscription.NewConnectError(endpoint, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	target := *endpoint
	conn := &Conn{
		endpoint: &target,
		wakeup:   wakeup,
		limit:    d.config.QueueLimit,
		grace:    d.config.CloseGrace,
		cancel:   cancel,
		done:     make(chan struct{}),
		logger:   d.logger.With("endpoint", target.Redacted()),
	}

	go conn.run(ctx, d)
	return conn, nil
}

func validateEndpoint(endpoint *url.URL) error {
	if endpoint == nil {
		return fmt.Errorf("%w: nil endpoint", subscription.ErrMalformedEndpoint)
	}
	switch endpoint.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", subscription.ErrMalformedEndpoint, endpoint.Scheme)
	}
	if endpoint.Host == "" {
		return fmt.Errorf("%w: missing host", subscription.ErrMalformedEndpoint)
	}
	return nil
}

// Conn is one websocket subscription
type Conn struct {
	endpoint *url.URL
	wakeup   func()
	limit    int
	grace    time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	logger   *slog.Logger

	retired atomic.Bool

	mu      sync.Mutex
	ws      *websocket.Conn
	queue   []subscription.Message
	dropped uint64
}

// Endpoint returns the endpoint this connection was created for
func (c *Conn) Endpoint() *url.URL {
	return c.endpoint
}

// PollNext returns the oldest queued message without blocking
func (c *Conn) PollNext() (subscription.Message, bool) {
	if c.retired.Load() {
		return subscription.Message{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return subscription.Message{}, false
	}
	msg := c.queue[0]
	c.queue[0] = subscription.Message{}
	c.queue = c.queue[1:]
	return msg, true
}

// Dropped returns how many data messages were discarded on a full queue
func (c *Conn) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Done is closed once the delivery goroutine has exited
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close retires the connection. It is safe to call more than once and
// does not wait for the delivery goroutine.
func (c *Conn) Close() error {
	if !c.retired.CompareAndSwap(false, true) {
		return nil
	}
	defer c.cancel()

	c.mu.Lock()
	ws := c.ws
	c.queue = nil
	c.mu.Unlock()

	if ws == nil {
		return nil
	}

	c.logger.Debug("closing subscription")
	closeFrame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = ws.WriteControl(websocket.CloseMessage, closeFrame, time.Now().Add(c.grace))
	return ws.Close()
}

// run dials the endpoint and pumps inbound frames into the queue
func (c *Conn) run(ctx context.Context, d *Dialer) {
	defer close(c.done)

	dialer := *d.dialer
	dialer.NetDialContext = releasableDial(ctx)
	ws, resp, err := dialer.DialContext(ctx, c.endpoint.String(), d.config.Header)
	if err != nil {
		if c.retired.Load() {
			return
		}
		cause := fmt.Errorf("%w: %v", subscription.ErrHandshake, err)
		if resp != nil {
			cause = fmt.Errorf("%w: %s", subscription.ErrHandshake, resp.Status)
		}
		c.logger.Debug("handshake failed", "error", err)
		c.push(subscription.Message{
			Kind: subscription.Error,
			Err:  subscription.NewConnectError(c.endpoint, cause),
		})
		return
	}

	c.mu.Lock()
	if c.retired.Load() {
		c.mu.Unlock()
		ws.Close()
		return
	}
	c.ws = ws
	c.mu.Unlock()

	if d.config.ReadLimit > 0 {
		ws.SetReadLimit(d.config.ReadLimit)
	}

	c.logger.Debug("subscription opened")
	c.push(subscription.Message{Kind: subscription.Opened})

	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			if c.retired.Load() {
				return
			}
			c.push(closeMessage(err))
			return
		}

		switch kind {
		case websocket.TextMessage:
			c.push(subscription.Message{Kind: subscription.Text, Text: string(data)})
		case websocket.BinaryMessage:
			c.push(subscription.Message{Kind: subscription.Binary, Data: data})
		}
	}
}

func closeMessage(err error) subscription.Message {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && (closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
		return subscription.Message{Kind: subscription.Closed, Err: err}
	}
	return subscription.Message{Kind: subscription.Error, Err: fmt.Errorf("read: %w", err)}
}

// push queues msg and signals the host. Data messages are dropped once
// the queue is full; lifecycle messages are always kept.
func (c *Conn) push(msg subscription.Message) {
	if c.retired.Load() {
		return
	}

	c.mu.Lock()
	isData := msg.Kind == subscription.Text || msg.Kind == subscription.Binary
	if isData && len(c.queue) >= c.limit {
		c.dropped++
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, msg)
	c.mu.Unlock()

	if c.wakeup != nil && !c.retired.Load() {
		c.wakeup()
	}
}

// Verify that Dialer and Conn implement the subscription interfaces at compile time
var (
	_ subscription.Connector    = (*Dialer)(nil)
	_ subscription.Subscription = (*Conn)(nil)
)
