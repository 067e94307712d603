package wsconn

import (
	"net/http"
	"time"
)

// Config configures a Dialer
type Config struct {
	// Header is sent with every handshake (e.g. Authorization)
	Header http.Header

	// HandshakeTimeout bounds the websocket handshake
	HandshakeTimeout time.Duration

	// QueueLimit caps undelivered data messages per connection
	QueueLimit int

	// ReadLimit caps the size of one inbound message in bytes (0 = no limit)
	ReadLimit int64

	// CloseGrace bounds the close frame write when a connection is retired
	CloseGrace time.Duration
}

// SetDefaults sets reasonable default values for Config
func (c *Config) SetDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.QueueLimit <= 0 {
		c.QueueLimit = 65536
	}
	if c.CloseGrace <= 0 {
		c.CloseGrace = time.Second
	}
}

// WithBearerToken returns a copy of c that authenticates with token.
func (c Config) WithBearerToken(token string) Config {
	if token == "" {
		return c
	}
	header := c.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("Authorization", "Bearer "+token)
	c.Header = header
	return c
}
