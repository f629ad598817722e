package protocol

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/netutil"

	"github.com/nao1215/lure/internal/metrics"
)

// Handler drives one protocol over an accepted session.
type Handler interface {
	// Protocol returns the protocol name, which is also the service label.
	Protocol() string

	// DefaultPort returns the port the service listens on by default.
	DefaultPort() int

	// Handle runs the session until it ends. The connection is closed by
	// the caller afterwards.
	Handle(ctx context.Context, s *Session)
}

// Server accepts connections for one Handler.
type Server struct {
	handler        Handler
	logger         *slog.Logger
	metrics        *metrics.Metrics
	idleTimeout    time.Duration
	maxConnections int

	wg sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records session counts.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithIdleTimeout closes sessions that stay silent for d. Zero disables it.
func WithIdleTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.idleTimeout = d
	}
}

// WithMaxConnections caps concurrent sessions. Zero means no cap.
func WithMaxConnections(n int) ServerOption {
	return func(s *Server) {
		s.maxConnections = n
	}
}

// NewServer creates a server for h.
func NewServer(h Handler, opts ...ServerOption) *Server {
	s := &Server{
		handler: h,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("service", h.Protocol())
	return s
}

// Serve accepts connections on ln until ctx is cancelled or the listener
// fails. On cancellation it closes ln and every open session, then waits
// for session goroutines to exit before returning nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.maxConnections > 0 {
		ln = netutil.LimitListener(ln, s.maxConnections)
	}
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.wg.Wait()

	s.logger.Info("listening", "address", ln.Addr().String())

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.logger.Warn("accept failed, retrying", "error", err, "backoff", backoff)
				time.Sleep(backoff)
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		backoff = 0

		s.wg.Add(1)
		go s.serveConn(ctx, conn)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	id := uuid.NewString()
	logger := s.logger.With("session", id, "remote", conn.RemoteAddr().String())
	sess := newSession(id, conn, s.idleTimeout, logger)

	s.metrics.SessionStarted(s.handler.Protocol())
	defer s.metrics.SessionEnded(s.handler.Protocol())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("session panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	logger.Debug("session opened")
	s.handler.Handle(ctx, sess)
	logger.Debug("session closed")
}
