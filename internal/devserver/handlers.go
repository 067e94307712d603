package devserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rmacdonaldsmith/streamdash/pkg/event"
)

const writeWait = 10 * time.Second

// Handlers contains the HTTP request handlers
type Handlers struct {
	server   *Server
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandlers creates handlers bound to server
func NewHandlers(server *Server, logger *slog.Logger) *Handlers {
	return &Handlers{
		server: server,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Index handles GET /index and /index/. With subscribe=true it streams
// matching events as they arrive; otherwise it sends the matching indexed
// events and closes.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	q, err := CompileQuery(params.Get("query"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	subscribe := params.Get("subscribe") == "true"

	var sub *Subscriber
	if subscribe {
		sub = h.server.hub.Subscribe(q)
		if sub == nil {
			writeError(w, "Server shutting down", http.StatusServiceUnavailable)
			return
		}
		defer h.server.hub.Unsubscribe(sub.ID)
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	logger := h.logger.With("remote", r.RemoteAddr, "query", q.String())

	if !subscribe {
		for _, ev := range h.server.index.Search(q) {
			payload, err := ev.MarshalJSON()
			if err != nil {
				continue
			}
			if err := h.write(ws, websocket.TextMessage, payload); err != nil {
				return
			}
		}
		_ = h.write(ws, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return
	}

	logger.Info("subscriber connected", "id", sub.ID)
	defer logger.Info("subscriber disconnected", "id", sub.ID, "dropped", sub.Dropped())

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(h.server.config.PingInterval)
	defer ping.Stop()

	for {
		select {
		case payload, ok := <-sub.Messages():
			if !ok {
				_ = h.write(ws, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := h.write(ws, websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

func (h *Handlers) write(ws *websocket.Conn, messageType int, data []byte) error {
	if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return ws.WriteMessage(messageType, data)
}

// PublishEvent handles POST /events with one JSON event as the body
func (h *Handlers) PublishEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.server.config.MaxEventBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "Event too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	ev, err := event.Decode(string(body))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	delivered, err := h.server.Publish(ev)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if claims := GetClaims(r); claims != nil {
		h.logger.Debug("event published", "subject", claims.Subject, "host", ev.Host, "service", ev.Service)
	}
	writeJSON(w, PublishResponse{Accepted: true, Subscribers: delivered}, http.StatusOK)
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.server.Health(), http.StatusOK)
}
