package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/lure/internal/database"
	"github.com/nao1215/lure/internal/model"
)

// emptyConfig writes an empty configuration file so tests never pick up a
// .lure from the working or home directory.
func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// seedStore creates an event store in a temp directory holding n HTTP
// events with ids 1..n and returns the directory.
func seedStore(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := range n {
		e := model.NewEvent(model.ServiceHTTP, "203.0.113.5", 8080, "GET")
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		e.Path = "/page-" + string(rune('a'+i))
		e.Payload = "secret-" + string(rune('a'+i))
		e.Classification = model.ClassificationHuman
		if i == 0 {
			e.Tool = model.ToolNikto
			e.Classification = model.ClassificationScanner
		}
		if _, err := db.Append(context.Background(), e); err != nil {
			t.Fatalf("failed to append: %v", err)
		}
	}
	return dir
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// subcommand returns the named child of a fresh root command with flags
// parsed from args.
func subcommand(t *testing.T, name string, args ...string) *cobra.Command {
	t.Helper()
	root := NewRootCmd()
	cmd, _, err := root.Find([]string{name})
	if err != nil {
		t.Fatalf("command %q not found: %v", name, err)
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return cmd
}
