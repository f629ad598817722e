package main

import (
	"strings"
	"testing"
)

func TestEventsCmd(t *testing.T) {
	t.Parallel()

	t.Run("newest first with limit", func(t *testing.T) {
		t.Parallel()

		dir := seedStore(t, 4)
		out, err := run(t, "events", "-n", "2", "--db-dir", dir, "--config", emptyConfig(t))
		if err != nil {
			t.Fatalf("events error = %v", err)
		}

		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %q", out)
		}
		if !strings.HasPrefix(lines[1], "4 ") || !strings.HasPrefix(lines[2], "3 ") {
			t.Errorf("expected ids 4 then 3, got %q", lines[1:])
		}
		if strings.Contains(out, "secret-") {
			t.Error("payloads must be hidden by default")
		}
	})

	t.Run("payload flag", func(t *testing.T) {
		t.Parallel()

		dir := seedStore(t, 1)
		out, err := run(t, "events", "--payload", "--db-dir", dir, "--config", emptyConfig(t))
		if err != nil {
			t.Fatalf("events error = %v", err)
		}
		for _, want := range []string{"secret-a", "nikto", "scanner", "203.0.113.5:8080", "/page-a"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got %q", want, out)
			}
		}
	})

	t.Run("missing store", func(t *testing.T) {
		t.Parallel()

		out, err := run(t, "events", "--db-dir", t.TempDir(), "--config", emptyConfig(t))
		if err != nil {
			t.Fatalf("events error = %v", err)
		}
		if !strings.Contains(out, "No events recorded yet.") {
			t.Errorf("unexpected output %q", out)
		}
	})
}
