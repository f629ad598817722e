package supervisor

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/lure/internal/config"
	"github.com/nao1215/lure/internal/database"
	"github.com/nao1215/lure/internal/log"
	"github.com/nao1215/lure/internal/model"
)

// memorySink collects forwarded events.
type memorySink struct {
	mu     sync.Mutex
	events []model.Event
	closed bool
}

func (s *memorySink) Publish(_ context.Context, events []model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.BindAddress = "127.0.0.1"
	cfg.HTTPPort = 0
	cfg.SSHPort = 0
	cfg.FTPPort = 0
	cfg.DBDir = t.TempDir()
	return cfg
}

func openStore(t *testing.T, dir string) *database.EventDB {
	t.Helper()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// start runs sup in the background and returns a stop function that
// cancels it and returns Serve's error.
func start(t *testing.T, sup *Supervisor) func() error {
	t.Helper()
	if err := sup.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Serve(ctx) }()

	var once sync.Once
	var err error
	stop := func() error {
		once.Do(func() {
			cancel()
			select {
			case err = <-done:
			case <-time.After(10 * time.Second):
				err = errors.New("Serve() did not return")
			}
		})
		return err
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func talk(t *testing.T, addr net.Addr, input string) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := io.WriteString(conn, input); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	out, err := io.ReadAll(bufio.NewReader(conn))
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	return string(out)
}

func TestSupervisorRecordsAllServices(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	store := openStore(t, cfg.DBDir)
	sink := &memorySink{}
	sup, err := New(cfg, store, WithLogger(log.Discard()), WithSink(sink))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := start(t, sup)

	resp := talk(t, sup.Addr(model.ServiceHTTP), "GET /wp-login.php HTTP/1.1\r\nHost: x\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("unexpected HTTP response %q", resp)
	}

	resp = talk(t, sup.Addr(model.ServiceSSH), "root\r\nroot\r\nadmin\r\nadmin\r\npi\r\npi\r\n")
	if !strings.HasSuffix(resp, "Permission denied (publickey,password).\r\n") {
		t.Errorf("unexpected SSH transcript %q", resp)
	}

	resp = talk(t, sup.Addr(model.ServiceFTP), "USER a\r\nQUIT\r\n")
	if !strings.HasSuffix(resp, "221 Goodbye.\r\n") {
		t.Errorf("unexpected FTP transcript %q", resp)
	}

	if err := stop(); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	events := store.Mirror()
	if len(events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(events))
	}
	count := map[model.Service]int{}
	for _, e := range events {
		count[e.Service]++
	}
	if count[model.ServiceHTTP] != 1 || count[model.ServiceSSH] != 3 || count[model.ServiceFTP] != 2 {
		t.Errorf("unexpected per-service counts %v", count)
	}
	if events[0].Tool != model.ToolWordPressScanner || events[0].Classification != model.ClassificationScanner {
		t.Errorf("unexpected HTTP event %+v", events[0])
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 6 {
		t.Errorf("expected 6 forwarded events, got %d", len(sink.events))
	}
	if !sink.closed {
		t.Error("expected sink to be closed")
	}
}

func TestSupervisorListen(t *testing.T) {
	t.Parallel()

	t.Run("port in use", func(t *testing.T) {
		t.Parallel()

		busy, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		defer busy.Close()

		cfg := testConfig(t)
		cfg.FTPPort = busy.Addr().(*net.TCPAddr).Port
		sup, err := New(cfg, openStore(t, cfg.DBDir), WithLogger(log.Discard()))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		if err := sup.Listen(); err == nil {
			t.Fatal("expected bind error")
		}
		for _, svc := range model.Services() {
			if addr := sup.Addr(svc); addr != nil {
				t.Errorf("%s still bound on %s", svc, addr)
			}
		}
	})

	t.Run("serve before listen", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		sup, err := New(cfg, openStore(t, cfg.DBDir), WithLogger(log.Discard()))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := sup.Serve(context.Background()); !errors.Is(err, ErrNotListening) {
			t.Errorf("Serve() error = %v, want ErrNotListening", err)
		}
	})
}

func TestSupervisorMetricsEndpoint(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.MetricsAddress = "127.0.0.1:0"
	sup, err := New(cfg, openStore(t, cfg.DBDir), WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := start(t, sup)

	_ = talk(t, sup.Addr(model.ServiceFTP), "QUIT\r\n")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + sup.MetricsAddr().String() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `lure_sessions_total{service="ftp"} 1`) {
		t.Errorf("metrics output lacks FTP session count:\n%s", body)
	}

	if err := stop(); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
}

func TestNewRejectsMissingGeoIPDatabase(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.GeoIPCityDB = cfg.DBDir + "/missing.mmdb"
	if _, err := New(cfg, openStore(t, cfg.DBDir), WithLogger(log.Discard())); err == nil {
		t.Fatal("expected error for missing GeoIP database")
	}
}
