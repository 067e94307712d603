package devserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/streamdash/pkg/event"
)

func newTestServer(t *testing.T, config Config) (*Server, *httptest.Server) {
	t.Helper()
	config.NoEmit = true
	s, err := NewServer(config, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.hub.Close()
		ts.Close()
	})
	return s, ts
}

func wsIndexURL(ts *httptest.Server, subscribe bool, query string) string {
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/index/"
	values := url.Values{}
	values.Set("subscribe", map[bool]string{true: "true", false: "false"}[subscribe])
	values.Set("query", query)
	return u + "?" + values.Encode()
}

func publish(t *testing.T, ts *httptest.Server, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/events", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestConfig(t *testing.T) {
	config := Config{}
	config.SetDefaults()
	require.NoError(t, config.Validate())
	assert.Equal(t, DefaultListen, config.Listen)
	assert.Equal(t, DefaultSubscriberBuffer, config.SubscriberBuffer)

	bad := Config{Listen: "no-port"}
	bad.SetDefaults()
	assert.ErrorIs(t, bad.Validate(), ErrInvalidListen)

	negative := Config{PingInterval: -time.Second}
	negative.SetDefaults()
	assert.ErrorIs(t, negative.Validate(), ErrInvalidInterval)

	_, err := NewServer(Config{Listen: "nope"}, nil)
	assert.ErrorIs(t, err, ErrInvalidListen)
}

func TestServer_SubscribeStreamsMatchingEvents(t *testing.T) {
	s, ts := newTestServer(t, Config{})

	ws, _, err := websocket.DefaultDialer.Dial(wsIndexURL(ts, true, `service = "cpu"`), nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return s.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	resp := publish(t, ts, "", `{"host":"a","service":"mem","metric":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = publish(t, ts, "", `{"host":"a","service":"cpu","metric":0.5,"tags":["x"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ack PublishResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.True(t, ack.Accepted)
	assert.Equal(t, 1, ack.Subscribers)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)

	ev, err := event.Decode(string(data))
	require.NoError(t, err)
	assert.Equal(t, "cpu", ev.Service)
	assert.Equal(t, []string{"x"}, ev.Tags)
	assert.NotNil(t, ev.Time, "the server stamps events without a time")
}

func TestServer_SnapshotQuery(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	for _, service := range []string{"cpu", "mem", "disk"} {
		_, err := s.Publish(newEvent("h", service, 1))
		require.NoError(t, err)
	}

	ws, _, err := websocket.DefaultDialer.Dial(wsIndexURL(ts, false, `service =~ "%m%"`), nil)
	require.NoError(t, err)
	defer ws.Close()

	var services []string
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
			break
		}
		ev, err := event.Decode(string(data))
		require.NoError(t, err)
		services = append(services, ev.Service)
	}
	assert.Equal(t, []string{"mem"}, services)
}

func TestServer_InvalidQueryRejectsHandshake(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	_, resp, err := websocket.DefaultDialer.Dial(wsIndexURL(ts, true, "(("), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Message, "invalid query")
}

func TestServer_PublishAuth(t *testing.T) {
	_, ts := newTestServer(t, Config{Secret: "s3cret"})
	token, _, err := NewJWTAuth("s3cret").GenerateToken("tests", false, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		body   string
		status int
	}{
		{name: "missing_token", body: `{}`, status: http.StatusUnauthorized},
		{name: "bad_token", token: "garbage", body: `{}`, status: http.StatusUnauthorized},
		{name: "valid_token", token: token, body: `{"host":"a"}`, status: http.StatusOK},
		{name: "not_an_object", token: token, body: `[1,2]`, status: http.StatusBadRequest},
		{name: "wrong_field_type", token: token, body: `{"metric":"high"}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := publish(t, ts, tt.token, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}

	t.Run("get_not_allowed", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/events", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestServer_PublishTooLarge(t *testing.T) {
	_, ts := newTestServer(t, Config{MaxEventBytes: 16})
	resp := publish(t, ts, "", `{"description":"far more than sixteen bytes"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	_, err := s.Publish(newEvent("a", "cpu", 1))
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.True(t, health.Healthy)
	assert.Equal(t, 1, health.Indexed)
	assert.Equal(t, uint64(1), health.Published)
}

func TestServer_ExpiryIsBroadcast(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	sub := s.hub.Subscribe(mustQuery(t, `state = "expired"`))
	ttl := 1.0
	ev := newEvent("a", "cpu", 1)
	ev.TTL = &ttl
	_, err := s.Publish(ev)
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(5 * time.Second) }
	assert.Equal(t, 1, s.ExpireNow())

	select {
	case payload := <-sub.Messages():
		expired, err := event.Decode(string(payload))
		require.NoError(t, err)
		assert.Equal(t, StateExpired, expired.State)
	case <-time.After(time.Second):
		t.Fatal("expiry was not broadcast")
	}
	assert.Equal(t, 0, s.index.Len())
}

func TestServer_ServeShutsDownSubscribers(t *testing.T) {
	s, err := NewServer(Config{Listen: "127.0.0.1:0", NoEmit: true}, nil)
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, listener) }()

	require.Eventually(t, func() bool { return s.Addr() != nil }, time.Second, 5*time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr().String()+"/index?subscribe=true&query=true", nil)
	require.NoError(t, err)
	defer ws.Close()

	cancel()

	_, _, err = ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Serve did not return")
	}
}
