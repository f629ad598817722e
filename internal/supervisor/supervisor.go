package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/lure/internal/classify"
	"github.com/nao1215/lure/internal/config"
	"github.com/nao1215/lure/internal/forward"
	"github.com/nao1215/lure/internal/geo"
	"github.com/nao1215/lure/internal/metrics"
	"github.com/nao1215/lure/internal/model"
	"github.com/nao1215/lure/internal/pipeline"
	"github.com/nao1215/lure/internal/protocol"
)

// metricsShutdownTimeout bounds the graceful stop of the metrics endpoint.
const metricsShutdownTimeout = 5 * time.Second

// ErrNotListening is returned by Serve when Listen has not succeeded.
var ErrNotListening = errors.New("supervisor is not listening")

// service couples one protocol handler with its port and listener.
type service struct {
	name    model.Service
	port    int
	handler protocol.Handler
	ln      net.Listener
}

// Supervisor runs the HTTP, SSH and FTP honeypots.
type Supervisor struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	sink    forward.Sink

	enricher  *geo.Enricher
	forwarder *forward.Forwarder
	services  []*service
	metricsLn net.Listener
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger shared by every service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithMetrics sets the collector set. When cfg.MetricsAddress is set and
// no collectors are given, New creates them.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

// WithSink forwards recorded events to sink instead of the Kafka sink
// built from the configuration.
func WithSink(sink forward.Sink) Option {
	return func(s *Supervisor) {
		s.sink = sink
	}
}

// New builds a Supervisor that records into store. cfg must be valid.
func New(cfg *config.Config, store pipeline.Store, opts ...Option) (*Supervisor, error) {
	s := &Supervisor{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil && cfg.MetricsAddress != "" {
		s.metrics = metrics.New()
	}

	engine, err := classify.NewEngine(cfg.MaxClients,
		classify.WithWindow(cfg.HistoryWindow),
		classify.WithBotSpan(cfg.BotSpan),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create classification engine: %w", err)
	}

	deps := pipeline.Deps{
		Store:   store,
		Engine:  engine,
		Metrics: s.metrics,
		Logger:  s.logger,
	}

	if cfg.GeoIPCityDB != "" || cfg.GeoIPASNDB != "" {
		enricher, err := geo.Open(cfg.GeoIPCityDB, cfg.GeoIPASNDB)
		if err != nil {
			return nil, err
		}
		s.enricher = enricher
		deps.Enricher = enricher
	}

	if s.sink == nil && len(cfg.KafkaBrokers) > 0 {
		s.sink = forward.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	if s.sink != nil {
		s.forwarder = forward.New(s.sink,
			forward.WithQueueSize(cfg.KafkaQueueSize),
			forward.WithLogger(s.logger.With("component", "forwarder")),
			forward.WithMetrics(s.metrics),
		)
		deps.Publisher = s.forwarder
	}

	s.services = []*service{
		{
			name:    model.ServiceHTTP,
			port:    cfg.HTTPPort,
			handler: protocol.NewHTTPHoneypot(pipeline.ForService(model.ServiceHTTP, deps)),
		},
		{
			name:    model.ServiceSSH,
			port:    cfg.SSHPort,
			handler: protocol.NewSSHHoneypot(pipeline.ForService(model.ServiceSSH, deps)),
		},
		{
			name:    model.ServiceFTP,
			port:    cfg.FTPPort,
			handler: protocol.NewFTPHoneypot(pipeline.ForService(model.ServiceFTP, deps)),
		},
	}
	return s, nil
}

// Listen binds every service listener and, when configured, the metrics
// endpoint. On failure nothing stays bound.
func (s *Supervisor) Listen() error {
	var lc net.ListenConfig
	for _, svc := range s.services {
		addr := net.JoinHostPort(s.cfg.BindAddress, strconv.Itoa(svc.port))
		ln, err := lc.Listen(context.Background(), "tcp", addr)
		if err != nil {
			s.closeListeners()
			return fmt.Errorf("failed to bind %s honeypot on %s: %w", svc.name, addr, err)
		}
		svc.ln = ln
	}

	if s.cfg.MetricsAddress != "" {
		ln, err := lc.Listen(context.Background(), "tcp", s.cfg.MetricsAddress)
		if err != nil {
			s.closeListeners()
			return fmt.Errorf("failed to bind metrics endpoint on %s: %w", s.cfg.MetricsAddress, err)
		}
		s.metricsLn = ln
	}
	return nil
}

func (s *Supervisor) closeListeners() {
	for _, svc := range s.services {
		if svc.ln != nil {
			_ = svc.ln.Close()
			svc.ln = nil
		}
	}
	if s.metricsLn != nil {
		_ = s.metricsLn.Close()
		s.metricsLn = nil
	}
}

// Addr returns the bound address of service, or nil before Listen.
func (s *Supervisor) Addr(name model.Service) net.Addr {
	for _, svc := range s.services {
		if svc.name == name && svc.ln != nil {
			return svc.ln.Addr()
		}
	}
	return nil
}

// MetricsAddr returns the bound metrics address, or nil when disabled.
func (s *Supervisor) MetricsAddr() net.Addr {
	if s.metricsLn == nil {
		return nil
	}
	return s.metricsLn.Addr()
}

// Serve runs every bound listener until ctx is cancelled or one of them
// fails. It returns after all sessions have exited and the forwarder has
// drained.
func (s *Supervisor) Serve(ctx context.Context) error {
	for _, svc := range s.services {
		if svc.ln == nil {
			return ErrNotListening
		}
	}
	defer s.closeEnricher()

	fwdCtx, stopForwarder := context.WithCancel(context.WithoutCancel(ctx))
	fwdDone := make(chan struct{})
	if s.forwarder != nil {
		go func() {
			defer close(fwdDone)
			_ = s.forwarder.Run(fwdCtx)
		}()
	} else {
		close(fwdDone)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range s.services {
		srv := protocol.NewServer(svc.handler,
			protocol.WithLogger(s.logger),
			protocol.WithMetrics(s.metrics),
			protocol.WithIdleTimeout(s.cfg.IdleTimeout),
			protocol.WithMaxConnections(s.cfg.MaxConnections),
		)
		ln := svc.ln
		g.Go(func() error {
			return srv.Serve(gctx, ln)
		})
	}
	if s.metricsLn != nil {
		g.Go(func() error {
			return s.serveMetrics(gctx, s.metricsLn)
		})
	}

	s.logger.Info("honeypot started",
		"http", addrString(s.Addr(model.ServiceHTTP)),
		"ssh", addrString(s.Addr(model.ServiceSSH)),
		"ftp", addrString(s.Addr(model.ServiceFTP)),
	)

	err := g.Wait()
	stopForwarder()
	<-fwdDone

	s.logger.Info("honeypot stopped")
	return err
}

// Run binds and serves until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Supervisor) serveMetrics(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("failed to stop metrics endpoint", "error", err)
		}
	})
	defer stop()

	s.logger.Info("serving metrics", "address", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics endpoint failed: %w", err)
	}
	return nil
}

func (s *Supervisor) closeEnricher() {
	if s.enricher == nil {
		return
	}
	if err := s.enricher.Close(); err != nil {
		s.logger.Warn("failed to close GeoIP databases", "error", err)
	}
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
