package devserver

// PublishResponse acknowledges a published event
type PublishResponse struct {
	Accepted    bool `json:"accepted"`
	Subscribers int  `json:"subscribers"`
}

// HealthResponse reports server state
type HealthResponse struct {
	Healthy     bool   `json:"healthy"`
	Subscribers int    `json:"subscribers"`
	Indexed     int    `json:"indexed"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
