package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rmacdonaldsmith/streamdash/pkg/event"
)

const shutdownTimeout = 5 * time.Second

// Server is the development event server
type Server struct {
	config     Config
	logger     *slog.Logger
	hub        *Hub
	index      *Index
	jwtAuth    *JWTAuth
	handlers   *Handlers
	middleware *Middleware
	server     *http.Server
	emitter    *Emitter
	now        func() time.Time

	mu   sync.Mutex
	addr net.Addr
}

// NewServer validates config and builds a server. Nothing listens until
// Run or Serve.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		config: config,
		logger: logger,
		hub:    NewHub(config.SubscriberBuffer),
		index:  NewIndex(),
		now:    time.Now,
	}
	if config.Secret != "" {
		s.jwtAuth = NewJWTAuth(config.Secret)
	}
	s.handlers = NewHandlers(s, logger)
	s.middleware = NewMiddleware(s.jwtAuth, logger)
	if !config.NoEmit && config.EmitInterval > 0 {
		s.emitter = NewEmitter(config.Hostname, config.EmitInterval, s, logger)
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s, nil
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	withMiddleware := func(handler http.HandlerFunc) http.Handler {
		return s.middleware.Recovery(s.middleware.Logging(handler))
	}

	mux.Handle("/index", withMiddleware(s.handlers.Index))
	mux.Handle("/index/", withMiddleware(s.handlers.Index))
	mux.Handle("/events", withMiddleware(s.middleware.AuthRequired(s.handlers.PublishEvent)))
	mux.Handle("/health", withMiddleware(s.handlers.Health))

	return mux
}

// Publish indexes ev and broadcasts it, returning the number of
// subscribers it reached. Events without a time are stamped now.
func (s *Server) Publish(ev *event.Event) (int, error) {
	if ev == nil {
		return 0, ErrNilEvent
	}
	if ev.Time == nil {
		now := s.now().UTC()
		ev.Time = &now
	}

	if err := s.index.Put(ev); err != nil {
		return 0, err
	}
	return s.broadcast(ev)
}

func (s *Server) broadcast(ev *event.Event) (int, error) {
	payload, err := ev.MarshalJSON()
	if err != nil {
		return 0, fmt.Errorf("encode event: %w", err)
	}
	return s.hub.Broadcast(ev, payload), nil
}

// Health snapshots server counters
func (s *Server) Health() HealthResponse {
	return HealthResponse{
		Healthy:     true,
		Subscribers: s.hub.Len(),
		Indexed:     s.index.Len(),
		Published:   s.hub.Published(),
		Dropped:     s.hub.Dropped(),
	}
}

// Addr returns the listening address once serving
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run listens on the configured address and serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Listen, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done, then shuts down
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()

	s.logger.Info("event server listening", "addr", listener.Addr().String(), "auth", s.jwtAuth != nil, "emit", s.emitter != nil)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		s.expireLoop(ctx)
		return nil
	})

	if s.emitter != nil {
		group.Go(func() error {
			s.emitter.Run(ctx)
			return nil
		})
	}

	return group.Wait()
}

// expireLoop removes events past their TTL and notifies subscribers
func (s *Server) expireLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.ExpiryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ExpireNow()
		}
	}
}

// ExpireNow runs one expiry pass and returns the number of expired events
func (s *Server) ExpireNow() int {
	expired := s.index.Expire(s.now())
	for _, ev := range expired {
		if _, err := s.broadcast(ev); err != nil {
			s.logger.Warn("broadcasting expiry", "error", err)
		}
	}
	return len(expired)
}
