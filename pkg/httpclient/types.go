package httpclient

import "time"

// Config holds client configuration
type Config struct {
	// ServerURL is the base URL of the event server (e.g., "http://localhost:5556").
	// ws and wss URLs are accepted and mapped to http and https.
	ServerURL string

	// Token is a bearer token sent with publish requests (optional)
	Token string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// PublishResponse represents an event publishing response
type PublishResponse struct {
	Accepted    bool `json:"accepted"`
	Subscribers int  `json:"subscribers"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Healthy     bool   `json:"healthy"`
	Subscribers int    `json:"subscribers"`
	Indexed     int    `json:"indexed"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
