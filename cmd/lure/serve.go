package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/lure/internal/config"
	"github.com/nao1215/lure/internal/database"
	"github.com/nao1215/lure/internal/log"
	"github.com/nao1215/lure/internal/supervisor"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, SSH and FTP honeypots",
		Long: `Serve starts all three honeypots and records every interaction until
interrupted with SIGINT or SIGTERM.

  HTTP  answers every request with a 200 and a decoy page
  SSH   presents an OpenSSH banner and denies three login attempts
  FTP   accepts USER/PASS/PWD/LIST/QUIT with canned vsFTPd replies

Settings are read from .lure (see "lure init"); flags override the file.

Examples:
  # Run with defaults (HTTP 8080, SSH 2222, FTP 2121)
  lure serve

  # Use standard ports (requires privileges)
  lure serve --http-port 80 --ssh-port 22 --ftp-port 21

  # Expose Prometheus metrics and forward events to Kafka
  lure serve --metrics-addr 127.0.0.1:9100 \
    --kafka-brokers kafka-1:9092,kafka-2:9092 --kafka-topic honeypot-events`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("bind", config.DefaultBindAddress, "Interface every listener binds to")
	cmd.Flags().Int("http-port", config.DefaultHTTPPort, "HTTP honeypot port")
	cmd.Flags().Int("ssh-port", config.DefaultSSHPort, "SSH honeypot port")
	cmd.Flags().Int("ftp-port", config.DefaultFTPPort, "FTP honeypot port")

	cmd.Flags().Duration("idle-timeout", config.DefaultIdleTimeout,
		"Close sessions that send nothing for this long (0 disables)")
	cmd.Flags().Int("max-conns", config.DefaultMaxConnections,
		"Maximum concurrent sessions per service (0 means unbounded)")

	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().String("geoip-city", "", "MaxMind GeoIP2/GeoLite2 City database path")
	cmd.Flags().String("geoip-asn", "", "MaxMind GeoIP2/GeoLite2 ASN database path")
	cmd.Flags().StringSlice("kafka-brokers", nil, "Kafka brokers to forward events to")
	cmd.Flags().String("kafka-topic", "", "Kafka topic for forwarded events")

	cmd.Flags().Bool("log-json", false, "Write logs as JSON")
	cmd.Flags().String("log-file", "", "Write logs to a rotated file instead of stderr")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.New(log.Options{
		Verbose: cfg.Verbose,
		JSON:    cfg.LogJSON,
		File:    cfg.LogFile,
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// buildServeConfig layers the serve flags that were set over loadConfig.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	stringFlags := map[string]*string{
		"bind":         &cfg.BindAddress,
		"metrics-addr": &cfg.MetricsAddress,
		"geoip-city":   &cfg.GeoIPCityDB,
		"geoip-asn":    &cfg.GeoIPASNDB,
		"kafka-topic":  &cfg.KafkaTopic,
		"log-file":     &cfg.LogFile,
	}
	for name, dst := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetString(name); err != nil {
			return nil, err
		}
	}

	intFlags := map[string]*int{
		"http-port": &cfg.HTTPPort,
		"ssh-port":  &cfg.SSHPort,
		"ftp-port":  &cfg.FTPPort,
		"max-conns": &cfg.MaxConnections,
	}
	for name, dst := range intFlags {
		if !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetInt(name); err != nil {
			return nil, err
		}
	}

	if flags.Changed("idle-timeout") {
		if cfg.IdleTimeout, err = flags.GetDuration("idle-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("kafka-brokers") {
		if cfg.KafkaBrokers, err = flags.GetStringSlice("kafka-brokers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("log-json") {
		if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// serve opens the event store and runs the supervisor until ctx ends.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		if errors.Is(err, database.ErrLocked) {
			return fmt.Errorf("another lure instance is already recording to %s: %w", cfg.DBDir, err)
		}
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close event store", "error", err)
		}
	}()
	logger.Info("event store opened", "path", db.Path())

	sup, err := supervisor.New(cfg, db, supervisor.WithLogger(logger))
	if err != nil {
		return err
	}
	return sup.Run(ctx)
}
