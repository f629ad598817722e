package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "lure"

	// DefaultBindAddress listens on every interface.
	DefaultBindAddress = "0.0.0.0"

	// DefaultHTTPPort is the emulated web server port.
	DefaultHTTPPort = 8080

	// DefaultSSHPort is the emulated SSH port.
	DefaultSSHPort = 2222

	// DefaultFTPPort is the emulated FTP port.
	DefaultFTPPort = 2121

	// DefaultIdleTimeout closes a session that sends nothing for this long.
	DefaultIdleTimeout = 5 * time.Minute

	// DefaultMaxConnections is the per-listener cap on concurrent sessions.
	// Zero means unbounded.
	DefaultMaxConnections = 0

	// DefaultHistoryWindow is the number of recent requests inspected when
	// deciding whether an HTTP client is a bot.
	DefaultHistoryWindow = 5

	// DefaultBotSpan is the span under which a full window is machine-speed.
	DefaultBotSpan = 2 * time.Second

	// DefaultMaxClients bounds how many client addresses keep a history.
	DefaultMaxClients = 65536

	// DefaultRecentLimit is how many events the events command prints.
	DefaultRecentLimit = 20

	// DefaultKafkaQueueSize buffers events awaiting publication.
	DefaultKafkaQueueSize = 1024
)

// Config holds all configuration options for lure. It is populated from
// defaults, the config file and CLI flags and passed down explicitly.
type Config struct {
	// BindAddress is the interface every listener binds to.
	BindAddress string

	// HTTPPort, SSHPort and FTPPort are the listener ports.
	HTTPPort int
	SSHPort  int
	FTPPort  int

	// DBDir is the directory holding the SQLite event store.
	// Defaults to the XDG data directory (~/.local/share/lure on Linux).
	DBDir string

	// IdleTimeout closes sessions that stay silent this long. Zero disables it.
	IdleTimeout time.Duration

	// MaxConnections caps concurrent sessions per listener. Zero means no cap.
	MaxConnections int

	// HistoryWindow, BotSpan and MaxClients tune the HTTP timing classifier.
	HistoryWindow int
	BotSpan       time.Duration
	MaxClients    int

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output to JSON.
	LogJSON bool

	// LogFile writes logs to a rotated file instead of stderr.
	LogFile string

	// MetricsAddress serves Prometheus metrics on /metrics when set.
	MetricsAddress string

	// GeoIPCityDB and GeoIPASNDB are MaxMind database paths. When set,
	// events are enriched with location and network data in Meta.
	GeoIPCityDB string
	GeoIPASNDB  string

	// KafkaBrokers and KafkaTopic enable forwarding of recorded events.
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaQueueSize int

	// ConfigFilePath is an explicit config file; empty searches for .lure.
	ConfigFilePath string

	// JSONReport and MarkdownReport select the report format; both false
	// selects the plain text report.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile writes report and export output to a file instead of stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BindAddress:    DefaultBindAddress,
		HTTPPort:       DefaultHTTPPort,
		SSHPort:        DefaultSSHPort,
		FTPPort:        DefaultFTPPort,
		DBDir:          XDGDataDir(),
		IdleTimeout:    DefaultIdleTimeout,
		MaxConnections: DefaultMaxConnections,
		HistoryWindow:  DefaultHistoryWindow,
		BotSpan:        DefaultBotSpan,
		MaxClients:     DefaultMaxClients,
		KafkaQueueSize: DefaultKafkaQueueSize,
	}
}

// XDGDataDir returns the XDG data directory for lure.
// On Linux: ~/.local/share/lure
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for lure.
// On Linux: ~/.config/lure
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	ports := []int{c.HTTPPort, c.SSHPort, c.FTPPort}
	seen := make(map[int]bool, len(ports))
	for _, p := range ports {
		if p < 0 || p > 65535 {
			return ErrInvalidPort
		}
		if p != 0 && seen[p] {
			return ErrDuplicatePort
		}
		seen[p] = true
	}

	if c.DBDir == "" {
		return ErrNoDBDir
	}
	if c.IdleTimeout < 0 {
		return ErrInvalidIdleTimeout
	}
	if c.MaxConnections < 0 {
		return ErrInvalidMaxConnections
	}
	if c.HistoryWindow <= 0 {
		return ErrInvalidHistoryWindow
	}
	if c.BotSpan <= 0 {
		return ErrInvalidBotSpan
	}
	if c.MaxClients <= 0 {
		return ErrInvalidMaxClients
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return ErrKafkaTopicRequired
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
