package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidPort is returned when a listener port is outside 0-65535.
	// Port 0 asks the kernel for an ephemeral port.
	ErrInvalidPort = errors.New("invalid port: must be between 0 and 65535")

	// ErrDuplicatePort is returned when two listeners share a non-zero port.
	ErrDuplicatePort = errors.New("duplicate port: each service needs its own port")

	// ErrNoDBDir is returned when no storage directory is configured.
	ErrNoDBDir = errors.New("no database directory specified")

	// ErrInvalidIdleTimeout is returned when the idle timeout is negative.
	// Use 0 to disable idle timeouts.
	ErrInvalidIdleTimeout = errors.New("invalid idle timeout: must be non-negative")

	// ErrInvalidMaxConnections is returned when the connection cap is negative.
	// Use 0 for no cap.
	ErrInvalidMaxConnections = errors.New("invalid max connections: must be non-negative")

	// ErrInvalidHistoryWindow is returned when the classification window is not positive.
	ErrInvalidHistoryWindow = errors.New("invalid history window: must be positive")

	// ErrInvalidBotSpan is returned when the bot span is not positive.
	ErrInvalidBotSpan = errors.New("invalid bot span: must be positive")

	// ErrInvalidMaxClients is returned when the tracked client bound is not positive.
	ErrInvalidMaxClients = errors.New("invalid max clients: must be positive")

	// ErrKafkaTopicRequired is returned when Kafka brokers are set without a topic.
	ErrKafkaTopicRequired = errors.New("kafka topic is required when brokers are configured")

	// ErrConflictingReportFormats is returned when both JSON and Markdown
	// report output are requested.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
