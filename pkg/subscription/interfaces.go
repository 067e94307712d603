package subscription

import (
	"errors"
	"fmt"
	"io"
	"net/url"
)

var (
	// ErrMalformedEndpoint is returned when an endpoint cannot be dialled at all
	ErrMalformedEndpoint = errors.New("malformed endpoint")
	// ErrHandshake is returned when the server rejects or fails the handshake
	ErrHandshake = errors.New("handshake failed")
)

// MessageKind identifies what a Message carries.
type MessageKind int

const (
	// Opened is delivered once the connection is established
	Opened MessageKind = iota
	// Text carries a UTF-8 text payload
	Text
	// Binary carries a non-text payload
	Binary
	// Error reports a transport failure; the connection is unusable afterwards
	Error
	// Closed reports that the remote end closed the stream
	Closed
)

// String returns a readable name for the kind.
func (k MessageKind) String() string {
	switch k {
	case Opened:
		return "opened"
	case Text:
		return "text"
	case Binary:
		return "binary"
	case Error:
		return "error"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is one item received over a subscription.
type Message struct {
	Kind MessageKind
	Text string
	Data []byte
	Err  error
}

// Subscription is one live connection to one endpoint.
type Subscription interface {
	io.Closer

	// PollNext returns the next queued message without blocking.
	// It returns false when nothing is queued.
	PollNext() (Message, bool)

	// Endpoint returns the endpoint this subscription was created for.
	Endpoint() *url.URL
}

// Connector creates subscriptions.
type Connector interface {
	// Connect starts a subscription to endpoint. The wakeup callback may be
	// invoked from any goroutine whenever a message is queued; it must not
	// block. Connect fails with a *ConnectError.
	Connect(endpoint *url.URL, wakeup func()) (Subscription, error)
}

// ConnectError reports a failure to establish a subscription.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// NewConnectError wraps err for endpoint.
func NewConnectError(endpoint *url.URL, err error) *ConnectError {
	target := "<nil>"
	if endpoint != nil {
		target = endpoint.Redacted()
	}
	return &ConnectError{Endpoint: target, Err: err}
}
