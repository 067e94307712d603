package devserver_test

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/streamdash/internal/controller"
	"github.com/rmacdonaldsmith/streamdash/internal/devserver"
	"github.com/rmacdonaldsmith/streamdash/internal/wsconn"
	"github.com/rmacdonaldsmith/streamdash/pkg/event"
)

// Exercises the dashboard data path against a live server: controller,
// websocket dialer, subscription endpoint, query filtering.
func TestEndToEnd_ControllerReceivesPublishedEvents(t *testing.T) {
	server, err := devserver.NewServer(devserver.Config{NoEmit: true}, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	base, err := url.Parse("ws" + strings.TrimPrefix(ts.URL, "http"))
	require.NoError(t, err)

	wake := make(chan struct{}, 1)
	c := controller.New(wsconn.NewDialer(wsconn.Config{}, nil), controller.Options{
		Base:     base,
		Query:    `service = "cpu"`,
		Capacity: controller.MinCapacity,
		Wakeup: func() {
			select {
			case wake <- struct{}{}:
			default:
			}
		},
	})
	defer c.Close()

	require.Eventually(t, func() bool {
		c.Tick()
		return c.State() == controller.Connected
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return server.Health().Subscribers == 1
	}, 2*time.Second, 5*time.Millisecond)

	// The socket must outlive the handshake
	time.Sleep(50 * time.Millisecond)
	c.Tick()
	require.NoError(t, c.ConnectionError())
	require.Equal(t, 1, server.Health().Subscribers)

	for i := 0; i < 15; i++ {
		metric := float64(i)
		_, err := server.Publish(&event.Event{Host: "web-1", Service: "cpu", Metric: &metric})
		require.NoError(t, err)
		_, err = server.Publish(&event.Event{Host: "web-1", Service: "memory", Metric: &metric})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		c.Tick()
		return c.Stats().Events == 15
	}, 2*time.Second, 10*time.Millisecond)

	entries := c.Snapshot()
	require.Len(t, entries, controller.MinCapacity)
	for _, entry := range entries {
		require.NoError(t, entry.Err)
		assert.Equal(t, "cpu", entry.Event.Service)
	}
	assert.Equal(t, 14.0, *entries[len(entries)-1].Event.Metric)
	assert.Equal(t, uint64(5), c.Stats().Evicted)
	assert.NoError(t, c.ConnectionError())

	select {
	case <-wake:
	default:
		t.Fatal("wakeup was never signalled")
	}

	t.Run("commit_reconnects_with_new_query", func(t *testing.T) {
		c.SetQuery(`service = "memory"`)
		c.CommitQuery()
		c.Tick()

		// The new subscription opens and registers asynchronously, so keep publishing
		require.Eventually(t, func() bool {
			metric := 99.0
			if _, err := server.Publish(&event.Event{Host: "web-1", Service: "memory", Metric: &metric}); err != nil {
				return false
			}

			c.Tick()
			latest, ok := c.Latest()
			return ok && latest.Event != nil && *latest.Event.Metric == 99.0
		}, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, `service = "memory"`, c.Endpoint().Query().Get("query"))
		for _, entry := range c.Snapshot() {
			require.NotNil(t, entry.Event)
			assert.Equal(t, "memory", entry.Event.Service, "the buffer was cleared on adoption")
		}
	})

	t.Run("invalid_query_surfaces_connection_error", func(t *testing.T) {
		c.SetQuery("((")
		c.CommitQuery()
		require.Eventually(t, func() bool {
			c.Tick()
			return c.ConnectionError() != nil
		}, 2*time.Second, 10*time.Millisecond)
		assert.Contains(t, c.ConnectionError().Error(), "400")
		assert.Equal(t, controller.Connected, c.State())
		assert.Equal(t, `service = "memory"`, c.Endpoint().Query().Get("query"), "the previous subscription is kept")
		assert.NotEmpty(t, c.Snapshot())

		before := c.Stats().Events
		require.Eventually(t, func() bool {
			metric := 7.0
			if _, err := server.Publish(&event.Event{Host: "web-1", Service: "memory", Metric: &metric}); err != nil {
				return false
			}
			c.Tick()
			return c.Stats().Events > before
		}, 2*time.Second, 10*time.Millisecond)
	})
}
