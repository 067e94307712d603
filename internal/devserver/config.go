package devserver

import (
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	DefaultListen           = "127.0.0.1:5556"
	DefaultEmitInterval     = 2 * time.Second
	DefaultExpiryInterval   = time.Second
	DefaultSubscriberBuffer = 1024
	DefaultPingInterval     = 30 * time.Second
	DefaultTokenTTL         = 24 * time.Hour
	DefaultMaxEventBytes    = 1 << 20
)

var (
	ErrInvalidListen   = errors.New("invalid listen address")
	ErrInvalidInterval = errors.New("interval must be positive")
	ErrInvalidBuffer   = errors.New("subscriber buffer must be positive")
)

// Config holds server configuration
type Config struct {
	Listen string
	// Secret enables JWT auth on publishing when set
	Secret string

	// EmitInterval is the host telemetry period; zero or NoEmit disables it
	EmitInterval time.Duration
	NoEmit       bool
	Hostname     string

	ExpiryInterval   time.Duration
	SubscriberBuffer int
	PingInterval     time.Duration
	MaxEventBytes    int64
}

// SetDefaults fills zero values
func (c *Config) SetDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.EmitInterval == 0 {
		c.EmitInterval = DefaultEmitInterval
	}
	if c.ExpiryInterval == 0 {
		c.ExpiryInterval = DefaultExpiryInterval
	}
	if c.SubscriberBuffer == 0 {
		c.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if c.PingInterval == 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.MaxEventBytes == 0 {
		c.MaxEventBytes = DefaultMaxEventBytes
	}
}

// Validate checks the configuration after SetDefaults
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidListen, c.Listen, err)
	}
	if c.EmitInterval < 0 || c.ExpiryInterval <= 0 || c.PingInterval <= 0 {
		return ErrInvalidInterval
	}
	if c.SubscriberBuffer < 0 {
		return ErrInvalidBuffer
	}
	return nil
}
