package protocol

import (
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/nao1215/lure/internal/model"
)

func firstChoice(int) int { return 0 }

// parseResponse splits a raw response into status line, headers and body.
func parseResponse(t *testing.T, raw string) (string, map[string]string, string) {
	t.Helper()
	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	if !ok {
		t.Fatalf("response has no header terminator: %q", raw)
	}
	lines := strings.Split(head, "\r\n")
	headers := make(map[string]string)
	for _, line := range lines[1:] {
		k, v, _ := strings.Cut(line, ": ")
		headers[k] = v
	}
	return lines[0], headers, body
}

func startHTTP(t *testing.T, store *memoryStore) string {
	t.Helper()
	h := NewHTTPHoneypot(newRecorder(t, model.ServiceHTTP, store), WithHTTPPicker(firstChoice))
	addr, _ := startServer(t, h)
	return addr
}

func TestHTTPHoneypot(t *testing.T) {
	t.Parallel()

	t.Run("WordPress login probe", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		c := dial(t, startHTTP(t, store))
		c.send("POST /wp-login.php HTTP/1.1\r\n" +
			"Host: example.com\r\n" +
			"User-Agent: Mozilla/5.0\r\n" +
			"Content-Length: 18\r\n" +
			"\r\n" +
			"log=admin&pwd=pass")

		status, headers, body := parseResponse(t, c.readAll())
		if status != "HTTP/1.1 200 OK" {
			t.Errorf("status = %q", status)
		}
		if body != wordPressLoginPage {
			t.Errorf("unexpected body %q", body)
		}
		if headers["Content-Length"] != strconv.Itoa(len(body)) {
			t.Errorf("Content-Length = %q, body is %d bytes", headers["Content-Length"], len(body))
		}
		if headers["Server"] != serverHeaders[0] {
			t.Errorf("Server = %q", headers["Server"])
		}
		if headers["X-Powered-By"] != poweredByHeaders[0] {
			t.Errorf("X-Powered-By = %q", headers["X-Powered-By"])
		}
		if headers["Content-Type"] != "text/html; charset=utf-8" {
			t.Errorf("Content-Type = %q", headers["Content-Type"])
		}
		if headers["Connection"] != "close" {
			t.Errorf("Connection = %q", headers["Connection"])
		}

		events := store.snapshot()
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		e := events[0]
		if e.Service != model.ServiceHTTP || e.RequestType != "POST" || e.Path != "/wp-login.php" {
			t.Errorf("unexpected event %+v", e)
		}
		if e.Payload != "log=admin&pwd=pass" {
			t.Errorf("payload = %q", e.Payload)
		}
		if e.Headers["Host"] != "example.com" {
			t.Errorf("headers = %v", e.Headers)
		}
		if e.Tool != model.ToolWordPressScanner {
			t.Errorf("tool = %q", e.Tool)
		}
		if e.Classification != model.ClassificationScanner {
			t.Errorf("classification = %q", e.Classification)
		}
		if len(e.Meta) != 0 {
			t.Errorf("expected empty meta, got %v", e.Meta)
		}
	})

	t.Run("sqlmap gets the product page", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		c := dial(t, startHTTP(t, store))
		c.send("GET /item?id=1 HTTP/1.1\r\nUser-Agent: sqlmap/1.5\r\n\r\n")

		_, _, body := parseResponse(t, c.readAll())
		if body != productPage {
			t.Errorf("unexpected body %q", body)
		}
		events := store.snapshot()
		if len(events) != 1 || events[0].Tool != model.ToolSQLMap {
			t.Fatalf("unexpected events %+v", events)
		}
	})

	t.Run("SQL keywords in body", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		c := dial(t, startHTTP(t, store))
		payload := "id=1 UNION SELECT password FROM users"
		c.send("POST /search HTTP/1.1\r\nContent-Length: " + strconv.Itoa(len(payload)) + "\r\n\r\n" + payload)

		_, _, body := parseResponse(t, c.readAll())
		if body != "<html><body>"+genericPages[0]+"</body></html>" {
			t.Errorf("unexpected body %q", body)
		}
		events := store.snapshot()
		if len(events) != 1 || events[0].Tool != model.ToolSQLInjection {
			t.Fatalf("unexpected events %+v", events)
		}
		if events[0].Classification != model.ClassificationScanner {
			t.Errorf("classification = %q", events[0].Classification)
		}
	})

	t.Run("unparsable Content-Length leaves body absent", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		c := dial(t, startHTTP(t, store))
		c.send("POST /form HTTP/1.1\r\nContent-Length: lots\r\n\r\n")

		status, _, _ := parseResponse(t, c.readAll())
		if status != "HTTP/1.1 200 OK" {
			t.Errorf("status = %q", status)
		}
		events := store.snapshot()
		if len(events) != 1 || events[0].Payload != "" {
			t.Fatalf("unexpected events %+v", events)
		}
	})

	t.Run("oversized Content-Length leaves body absent", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		c := dial(t, startHTTP(t, store))
		c.send("POST /upload HTTP/1.1\r\nContent-Length: " + strconv.Itoa(maxBodyBytes+1) + "\r\n\r\n")

		status, _, _ := parseResponse(t, c.readAll())
		if status != "HTTP/1.1 200 OK" {
			t.Errorf("status = %q", status)
		}
		events := store.snapshot()
		if len(events) != 1 || events[0].Payload != "" || events[0].Path != "/upload" {
			t.Fatalf("unexpected events %+v", events)
		}
	})

	t.Run("body shorter than Content-Length leaves body absent", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		c := dial(t, startHTTP(t, store))
		c.send("POST /login HTTP/1.1\r\nContent-Length: 64\r\n\r\nuser=root")
		c.closeWrite()

		status, _, _ := parseResponse(t, c.readAll())
		if status != "HTTP/1.1 200 OK" {
			t.Errorf("status = %q", status)
		}
		events := store.snapshot()
		if len(events) != 1 || events[0].Payload != "" {
			t.Fatalf("unexpected events %+v", events)
		}
	})

	t.Run("oversized headers abort without an event", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		c := dial(t, startHTTP(t, store))
		var req strings.Builder
		req.WriteString("GET / HTTP/1.1\r\n")
		filler := strings.Repeat("a", 1000)
		for i := range 70 {
			req.WriteString("X-Filler-" + strconv.Itoa(i) + ": " + filler + "\r\n")
		}
		req.WriteString("\r\n")
		// The server may reset the connection before every byte is written.
		_, _ = io.WriteString(c.conn, req.String())

		data, _ := io.ReadAll(c.r)
		if len(data) != 0 {
			t.Errorf("expected no response, got %q", data)
		}
		if n := len(store.snapshot()); n != 0 {
			t.Errorf("expected no events, got %d", n)
		}
	})

	t.Run("last duplicate header wins", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		c := dial(t, startHTTP(t, store))
		c.send("GET / HTTP/1.0\r\nX-Probe: one\r\nX-Probe: two\r\nno-colon-line\r\n\r\n")
		_ = c.readAll()

		events := store.snapshot()
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if got := events[0].Headers["X-Probe"]; got != "two" {
			t.Errorf("X-Probe = %q, want two", got)
		}
		if len(events[0].Headers) != 1 {
			t.Errorf("unexpected headers %v", events[0].Headers)
		}
	})

	t.Run("headers end at EOF", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		c := dial(t, startHTTP(t, store))
		c.send("GET /robots.txt HTTP/1.1\r\nAccept: */*\r\n")
		c.closeWrite()

		status, _, _ := parseResponse(t, c.readAll())
		if status != "HTTP/1.1 200 OK" {
			t.Errorf("status = %q", status)
		}
		if n := len(store.snapshot()); n != 1 {
			t.Errorf("expected 1 event, got %d", n)
		}
	})

	t.Run("malformed request line", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		c := dial(t, startHTTP(t, store))
		c.send("GARBAGE\r\n")
		c.expectClosed()

		if n := len(store.snapshot()); n != 0 {
			t.Errorf("expected no events, got %d", n)
		}
	})

	t.Run("invalid UTF-8 request line", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		c := dial(t, startHTTP(t, store))
		c.send("GET /\xff\xfe HTTP/1.1\r\n")
		c.expectClosed()

		if n := len(store.snapshot()); n != 0 {
			t.Errorf("expected no events, got %d", n)
		}
	})

	t.Run("storage failure still answers", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{fail: true}
		c := dial(t, startHTTP(t, store))
		c.send("GET /phpmyadmin/ HTTP/1.1\r\n\r\n")

		_, _, body := parseResponse(t, c.readAll())
		if body != phpMyAdminPage {
			t.Errorf("unexpected body %q", body)
		}
	})

	t.Run("rapid requests from one address", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		addr := startHTTP(t, store)
		for range 5 {
			c := dial(t, addr)
			c.send("GET / HTTP/1.1\r\n\r\n")
			_ = c.readAll()
		}

		events := store.snapshot()
		if len(events) != 5 {
			t.Fatalf("expected 5 events, got %d", len(events))
		}
		for i, e := range events[:4] {
			if e.Classification != model.ClassificationHuman {
				t.Errorf("event %d classification = %q, want human", i, e.Classification)
			}
		}
		if events[4].Classification != model.ClassificationBot {
			t.Errorf("fifth classification = %q, want bot", events[4].Classification)
		}
	})
}

func TestResponseBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		tool model.Tool
		want string
	}{
		{name: "wp-admin", path: "/WP-ADMIN/", want: wordPressLoginPage},
		{name: "phpMyAdmin", path: "/phpMyAdmin/index.php", want: phpMyAdminPage},
		{name: "env file", path: "/app/.env", want: envFile},
		{name: "config.php", path: "/config.php", want: phpConfigFile},
		{name: "config.inc.php", path: "/pma/config.inc.php", want: phpConfigFile},
		{name: "path beats tool", path: "/wp-login.php", tool: model.ToolSQLMap, want: wordPressLoginPage},
		{name: "sqlmap", path: "/", tool: model.ToolSQLMap, want: productPage},
		{name: "nikto", path: "/", tool: model.ToolNikto, want: adminPage},
		{name: "nmap", path: "/", tool: model.ToolNmap, want: welcomePage},
		{name: "generic", path: "/", want: "<html><body>" + genericPages[2] + "</body></html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := responseBody(tt.path, tt.tool, func(int) int { return 2 })
			if got != tt.want {
				t.Errorf("responseBody() = %q, want %q", got, tt.want)
			}
		})
	}
}
