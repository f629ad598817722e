package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig documents the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default ports are 8080, 2222 and 2121", func(t *testing.T) {
		t.Parallel()
		if cfg.HTTPPort != 8080 || cfg.SSHPort != 2222 || cfg.FTPPort != 2121 {
			t.Errorf("unexpected ports: http=%d ssh=%d ftp=%d", cfg.HTTPPort, cfg.SSHPort, cfg.FTPPort)
		}
	})

	t.Run("binds all interfaces", func(t *testing.T) {
		t.Parallel()
		if cfg.BindAddress != "0.0.0.0" {
			t.Errorf("expected 0.0.0.0, got %q", cfg.BindAddress)
		}
	})

	t.Run("classification window is five requests within two seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.HistoryWindow != 5 {
			t.Errorf("expected window 5, got %d", cfg.HistoryWindow)
		}
		if cfg.BotSpan != 2*time.Second {
			t.Errorf("expected bot span 2s, got %v", cfg.BotSpan)
		}
	})

	t.Run("database lives in the XDG data directory", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected %s, got %s", XDGDataDir(), cfg.DBDir)
		}
	})

	t.Run("defaults validate", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected defaults to validate, got %v", err)
		}
	})
}

// TestConfigValidate tests each validation rule in isolation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"ephemeral ports are valid", func(c *Config) { c.HTTPPort, c.SSHPort, c.FTPPort = 0, 0, 0 }, nil},
		{"negative port", func(c *Config) { c.SSHPort = -1 }, ErrInvalidPort},
		{"port above range", func(c *Config) { c.FTPPort = 70000 }, ErrInvalidPort},
		{"duplicate port", func(c *Config) { c.FTPPort = c.HTTPPort }, ErrDuplicatePort},
		{"empty db dir", func(c *Config) { c.DBDir = "" }, ErrNoDBDir},
		{"negative idle timeout", func(c *Config) { c.IdleTimeout = -time.Second }, ErrInvalidIdleTimeout},
		{"zero idle timeout disables it", func(c *Config) { c.IdleTimeout = 0 }, nil},
		{"negative max connections", func(c *Config) { c.MaxConnections = -1 }, ErrInvalidMaxConnections},
		{"zero window", func(c *Config) { c.HistoryWindow = 0 }, ErrInvalidHistoryWindow},
		{"zero bot span", func(c *Config) { c.BotSpan = 0 }, ErrInvalidBotSpan},
		{"zero max clients", func(c *Config) { c.MaxClients = 0 }, ErrInvalidMaxClients},
		{"kafka without topic", func(c *Config) { c.KafkaBrokers = []string{"localhost:9092"} }, ErrKafkaTopicRequired},
		{"kafka with topic", func(c *Config) {
			c.KafkaBrokers = []string{"localhost:9092"}
			c.KafkaTopic = "lure-events"
		}, nil},
		{"both report formats", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			cfg.DBDir = "/tmp/lure"
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.lure")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads and applies a YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `bind: 127.0.0.1
ports:
  http: 8081
  ftp: 2122
storage:
  dir: /var/lib/lure
limits:
  idleTimeout: 90s
  maxConnections: 64
classification:
  window: 10
  botSpan: 3s
kafka:
  brokers:
    - kafka-1:9092
    - kafka-2:9092
  topic: honeypot
metrics:
  address: 127.0.0.1:9100
log:
  json: true
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		file, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		file.Apply(cfg)

		if cfg.BindAddress != "127.0.0.1" {
			t.Errorf("expected bind 127.0.0.1, got %q", cfg.BindAddress)
		}
		if cfg.HTTPPort != 8081 || cfg.FTPPort != 2122 {
			t.Errorf("unexpected ports: %d %d", cfg.HTTPPort, cfg.FTPPort)
		}
		if cfg.SSHPort != DefaultSSHPort {
			t.Errorf("unset port must keep default, got %d", cfg.SSHPort)
		}
		if cfg.DBDir != "/var/lib/lure" {
			t.Errorf("unexpected db dir %q", cfg.DBDir)
		}
		if cfg.IdleTimeout != 90*time.Second || cfg.MaxConnections != 64 {
			t.Errorf("unexpected limits: %v %d", cfg.IdleTimeout, cfg.MaxConnections)
		}
		if cfg.HistoryWindow != 10 || cfg.BotSpan != 3*time.Second {
			t.Errorf("unexpected classification: %d %v", cfg.HistoryWindow, cfg.BotSpan)
		}
		if cfg.MaxClients != DefaultMaxClients {
			t.Errorf("unset max clients must keep default, got %d", cfg.MaxClients)
		}
		if strings.Join(cfg.KafkaBrokers, ",") != "kafka-1:9092,kafka-2:9092" || cfg.KafkaTopic != "honeypot" {
			t.Errorf("unexpected kafka: %v %q", cfg.KafkaBrokers, cfg.KafkaTopic)
		}
		if cfg.MetricsAddress != "127.0.0.1:9100" || !cfg.LogJSON {
			t.Errorf("unexpected metrics/log: %q %v", cfg.MetricsAddress, cfg.LogJSON)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("applied config should validate: %v", err)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(configPath, []byte("ports: [oops"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("bind: 0.0.0.0\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if got := FindConfigFile(configPath); got != configPath {
			t.Errorf("expected %s, got %s", configPath, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile("/nonexistent/lure.yaml"); got != "" {
			t.Errorf("expected empty, got %s", got)
		}
	})

	t.Run("searches cwd then XDG config dir then home", func(t *testing.T) {
		t.Parallel()

		cwd, err := os.Getwd()
		if err != nil {
			t.Fatalf("Getwd() error = %v", err)
		}
		want := []string{
			filepath.Join(cwd, DefaultConfigFile),
			filepath.Join(XDGConfigDir(), XDGConfigFile),
		}
		if home, err := os.UserHomeDir(); err == nil {
			want = append(want, filepath.Join(home, DefaultConfigFile))
		}

		got := candidatePaths()
		if len(got) != len(want) {
			t.Fatalf("candidatePaths() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("candidate %d = %s, want %s", i, got[i], want[i])
			}
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("unexpected data dir %s", XDGDataDir())
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("unexpected config dir %s", XDGConfigDir())
	}
}
