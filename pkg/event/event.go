package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"
)

var (
	// ErrNotObject is returned when a message is not a JSON object
	ErrNotObject = errors.New("message is not a JSON object")
	// ErrNonText is returned for payloads that are not UTF-8 text
	ErrNonText = errors.New("message is not a text payload")
)

// StateOK is the state reported by healthy services.
const StateOK = "ok"

// Event is one observation received from the stream.
// Empty strings and nil pointers mean "not present".
type Event struct {
	Time        *time.Time
	State       string
	Service     string
	Host        string
	Description string
	Tags        []string
	TTL         *float64
	TimeMicros  *int64
	Metric      *float64

	// Attributes holds every key not covered by the fields above.
	Attributes map[string]any
}

// DecodeError reports a message that could not be decoded into an Event.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode event: %v: %q", e.Err, truncate(e.Raw, 120))
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewNonTextError builds the DecodeError reported for a binary payload.
func NewNonTextError(data []byte) *DecodeError {
	return &DecodeError{
		Raw: fmt.Sprintf("<binary message, %d bytes>", len(data)),
		Err: ErrNonText,
	}
}

// Decode parses raw as an Event.
func Decode(raw string) (*Event, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &DecodeError{Raw: raw, Err: ErrNotObject}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, &DecodeError{Raw: raw, Err: err}
	}

	event := &Event{Tags: []string{}}
	for key, value := range fields {
		if err := event.decodeField(key, value); err != nil {
			return nil, &DecodeError{Raw: raw, Err: fmt.Errorf("field %q: %w", key, err)}
		}
	}
	return event, nil
}

func (e *Event) decodeField(key string, value json.RawMessage) error {
	isNull := bytes.Equal(bytes.TrimSpace(value), []byte("null"))

	switch key {
	case "tags":
		// Tags never fail the event: anything but a list of strings is empty.
		var tags []string
		if !isNull && json.Unmarshal(value, &tags) == nil && tags != nil {
			e.Tags = tags
		}
		return nil
	}

	if isNull {
		return nil
	}

	switch key {
	case "time":
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return err
		}
		e.Time = &parsed
	case "state":
		return json.Unmarshal(value, &e.State)
	case "service":
		return json.Unmarshal(value, &e.Service)
	case "host":
		return json.Unmarshal(value, &e.Host)
	case "description":
		return json.Unmarshal(value, &e.Description)
	case "ttl":
		var ttl float64
		if err := json.Unmarshal(value, &ttl); err != nil {
			return err
		}
		e.TTL = &ttl
	case "time_micros":
		var micros int64
		if err := json.Unmarshal(value, &micros); err != nil {
			return err
		}
		e.TimeMicros = &micros
	case "metric":
		var metric float64
		if err := json.Unmarshal(value, &metric); err != nil {
			return err
		}
		e.Metric = &metric
	default:
		return e.setAttribute(key, value)
	}
	return nil
}

func (e *Event) setAttribute(key string, value json.RawMessage) error {
	var decoded any
	if err := json.Unmarshal(value, &decoded); err != nil {
		return err
	}
	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[key] = decoded
	return nil
}

// MarshalJSON encodes the event with Attributes flattened next to the named fields.
func (e *Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Attributes)+10)
	for k, v := range e.Attributes {
		out[k] = v
	}

	if e.Time != nil {
		out["time"] = e.Time.UTC().Format(time.RFC3339Nano)
	}
	setString(out, "state", e.State)
	setString(out, "service", e.Service)
	setString(out, "host", e.Host)
	setString(out, "description", e.Description)
	if e.Tags != nil {
		out["tags"] = e.Tags
	} else {
		out["tags"] = []string{}
	}
	if e.TTL != nil {
		out["ttl"] = *e.TTL
	}
	if e.TimeMicros != nil {
		out["time_micros"] = *e.TimeMicros
	}
	if e.Metric != nil {
		out["metric"] = *e.Metric
	}

	return json.Marshal(out)
}

func setString(out map[string]any, key, value string) {
	if value != "" {
		out[key] = value
	}
}

// MetricValue returns the metric and whether it is present.
func (e *Event) MetricValue() (float64, bool) {
	if e.Metric == nil {
		return 0, false
	}
	return *e.Metric, true
}

// IsOK reports whether the event carries the "ok" state.
func (e *Event) IsOK() bool {
	return e.State == StateOK
}

// Key identifies the host/service pair the event describes.
func (e *Event) Key() string {
	return e.Host + "\x00" + e.Service
}

// HasTag reports whether the event is tagged with tag.
func (e *Event) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Expired reports whether the event's TTL has elapsed at now.
// Events without a time or TTL never expire.
func (e *Event) Expired(now time.Time) bool {
	if e.Time == nil || e.TTL == nil {
		return false
	}
	ttl := time.Duration(*e.TTL * float64(time.Second))
	return now.After(e.Time.Add(ttl))
}

// AttributeKeys returns the attribute names in sorted order.
func (e *Event) AttributeKeys() []string {
	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncate shortens s to at most max bytes without splitting a rune
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
