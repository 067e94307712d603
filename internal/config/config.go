package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/rmacdonaldsmith/streamdash/internal/controller"
	"github.com/rmacdonaldsmith/streamdash/internal/views"
	"github.com/rmacdonaldsmith/streamdash/pkg/endpoint"
)

const (
	DefaultBaseURL          = "ws://localhost:5556"
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultFrameInterval    = 250 * time.Millisecond
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultWorkspaceName    = "main"
	DefaultQuery            = "true"
)

var (
	ErrInvalidBaseURL     = errors.New("invalid base url")
	ErrCapacityRange      = errors.New("capacity out of range")
	ErrUnknownViewKind    = errors.New("unknown view kind")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrInvalidInterval    = errors.New("interval must be positive")
	ErrUnsupportedFormat  = errors.New("unsupported config file format")
	ErrDuplicateWorkspace = errors.New("duplicate workspace name")
)

// Duration wraps time.Duration so it can be written as "5s" or "250ms"
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string. An empty value is zero.
func (d *Duration) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	if value == "" {
		d.Duration = 0
		return nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value, err)
	}

	d.Duration = parsed
	return nil
}

// MarshalText renders the duration in Go syntax
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the root dashboard configuration
type Config struct {
	BaseURL          string            `toml:"base_url" yaml:"base_url"`
	Token            string            `toml:"token" yaml:"token"`
	HandshakeTimeout Duration          `toml:"handshake_timeout" yaml:"handshake_timeout"`
	FrameInterval    Duration          `toml:"frame_interval" yaml:"frame_interval"`
	DefaultCapacity  int               `toml:"default_capacity" yaml:"default_capacity"`
	Log              LogConfig         `toml:"log" yaml:"log"`
	Workspaces       []WorkspaceConfig `toml:"workspace" yaml:"workspaces"`
}

// LogConfig selects where and how the process logs
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	// Path is a log file; empty logs to stderr
	Path string `toml:"path" yaml:"path"`
}

// WorkspaceConfig is one named tab of widgets
type WorkspaceConfig struct {
	Name  string       `toml:"name" yaml:"name"`
	Views []ViewConfig `toml:"view" yaml:"views"`
}

// ViewConfig describes one widget and its subscription
type ViewConfig struct {
	Kind     string `toml:"kind" yaml:"kind"`
	Title    string `toml:"title" yaml:"title"`
	Query    string `toml:"query" yaml:"query"`
	Capacity int    `toml:"capacity" yaml:"capacity"`
}

// Default returns a configuration with one workspace holding a log view
// of every event.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// Load reads the file at path, expands environment variables, decodes it
// according to its extension, then applies defaults and validates.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	expanded := []byte(os.ExpandEnv(string(raw)))

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("decode TOML %q: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("decode YAML %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return &cfg, nil
}

// SetDefaults fills zero values
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.HandshakeTimeout.Duration == 0 {
		c.HandshakeTimeout.Duration = DefaultHandshakeTimeout
	}
	if c.FrameInterval.Duration == 0 {
		c.FrameInterval.Duration = DefaultFrameInterval
	}
	if c.DefaultCapacity == 0 {
		c.DefaultCapacity = controller.DefaultCapacity
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if len(c.Workspaces) == 0 {
		c.Workspaces = []WorkspaceConfig{{
			Name:  DefaultWorkspaceName,
			Views: []ViewConfig{{Kind: string(views.KindLog), Title: "all events", Query: DefaultQuery}},
		}}
	}

	for i := range c.Workspaces {
		ws := &c.Workspaces[i]
		if ws.Name == "" {
			ws.Name = fmt.Sprintf("workspace %d", i+1)
		}
		for j := range ws.Views {
			view := &ws.Views[j]
			if view.Kind == "" {
				view.Kind = string(views.KindLog)
			}
			if view.Capacity == 0 {
				view.Capacity = c.DefaultCapacity
			}
		}
	}
}

// Validate checks the configuration after SetDefaults
func (c *Config) Validate() error {
	if _, err := endpoint.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if c.HandshakeTimeout.Duration < 0 {
		return fmt.Errorf("handshake_timeout: %w", ErrInvalidInterval)
	}
	if c.FrameInterval.Duration <= 0 {
		return fmt.Errorf("frame_interval: %w", ErrInvalidInterval)
	}
	if err := validateCapacity(c.DefaultCapacity); err != nil {
		return fmt.Errorf("default_capacity: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Workspaces))
	for _, ws := range c.Workspaces {
		if seen[ws.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateWorkspace, ws.Name)
		}
		seen[ws.Name] = true

		for i, view := range ws.Views {
			if err := view.Validate(); err != nil {
				return fmt.Errorf("workspace %q view %d: %w", ws.Name, i, err)
			}
		}
	}
	return nil
}

// Validate checks the level and format names
func (l LogConfig) Validate() error {
	if _, err := ParseLevel(l.Level); err != nil {
		return err
	}
	switch l.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, l.Format)
	}
}

// Validate checks the kind and capacity of one view
func (v ViewConfig) Validate() error {
	if _, err := views.ParseKind(v.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownViewKind, err)
	}
	return validateCapacity(v.Capacity)
}

func validateCapacity(n int) error {
	if n < controller.MinCapacity || n > controller.MaxCapacity {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrCapacityRange, n, controller.MinCapacity, controller.MaxCapacity)
	}
	return nil
}
