package protocol

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/lure/internal/classify"
	"github.com/nao1215/lure/internal/database"
	"github.com/nao1215/lure/internal/log"
	"github.com/nao1215/lure/internal/model"
	"github.com/nao1215/lure/internal/pipeline"
)

// memoryStore is an in-memory pipeline.Store.
type memoryStore struct {
	mu     sync.Mutex
	events []model.Event
	fail   bool
}

func (s *memoryStore) Append(_ context.Context, e *model.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return 0, fmt.Errorf("failed to insert event: %w", database.ErrStorageUnavailable)
	}
	e.ID = int64(len(s.events) + 1)
	s.events = append(s.events, e.Clone())
	return e.ID, nil
}

func (s *memoryStore) snapshot() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Event(nil), s.events...)
}

// newRecorder builds the production pipeline for service over store.
func newRecorder(t *testing.T, service model.Service, store *memoryStore) *pipeline.Pipeline {
	t.Helper()
	engine, err := classify.NewEngine(64)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return pipeline.ForService(service, pipeline.Deps{
		Store:  store,
		Engine: engine,
		Logger: log.Discard(),
	})
}

// startServer serves h on a loopback port until the test ends.
func startServer(t *testing.T, h Handler, opts ...ServerOption) (string, context.CancelFunc) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(h, append([]ServerOption{WithLogger(log.Discard())}, opts...)...)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	})
	return ln.Addr().String(), cancel
}

// client is a line-oriented test peer.
type client struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *client) send(s string) {
	c.t.Helper()
	if _, err := io.WriteString(c.conn, s); err != nil {
		c.t.Fatalf("failed to send %q: %v", s, err)
	}
}

// expect reads exactly len(want) bytes and compares them.
func (c *client) expect(want string) {
	c.t.Helper()
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(c.r, buf); err != nil {
		c.t.Fatalf("failed to read %q: %v (got %q)", want, err, buf)
	}
	if string(buf) != want {
		c.t.Fatalf("got %q, want %q", buf, want)
	}
}

// expectClosed asserts the server closes the connection without sending more.
func (c *client) expectClosed() {
	c.t.Helper()
	rest, err := io.ReadAll(c.r)
	if err != nil {
		c.t.Fatalf("expected clean close, got %v", err)
	}
	if len(rest) != 0 {
		c.t.Fatalf("unexpected trailing data %q", rest)
	}
}

func (c *client) readAll() string {
	c.t.Helper()
	data, err := io.ReadAll(c.r)
	if err != nil {
		c.t.Fatalf("failed to read response: %v", err)
	}
	return string(data)
}

// closeWrite half-closes the client so the server sees EOF.
func (c *client) closeWrite() {
	c.t.Helper()
	if tcp, ok := c.conn.(*net.TCPConn); ok {
		if err := tcp.CloseWrite(); err != nil {
			c.t.Fatalf("CloseWrite() error = %v", err)
		}
	}
}
