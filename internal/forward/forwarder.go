package forward

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/lure/internal/metrics"
	"github.com/nao1215/lure/internal/model"
)

const (
	defaultBatchSize  = 100
	defaultQueueSize  = 1024
	drainGracePeriod  = 5 * time.Second
	resultPublished   = "published"
	resultQueueFull   = "queue_full"
	resultPublishFail = "publish_failed"
)

// Sink receives batches of recorded events.
type Sink interface {
	Publish(ctx context.Context, events []model.Event) error
	Close() error
}

// Forwarder queues events and publishes them to a Sink in the background.
type Forwarder struct {
	sink      Sink
	queue     chan model.Event
	batchSize int
	attempts  int
	backoff   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithQueueSize sets how many events may wait for publication.
func WithQueueSize(n int) Option {
	return func(f *Forwarder) {
		if n > 0 {
			f.queue = make(chan model.Event, n)
		}
	}
}

// WithBatchSize sets the maximum events per Publish call.
func WithBatchSize(n int) Option {
	return func(f *Forwarder) {
		if n > 0 {
			f.batchSize = n
		}
	}
}

// WithRetry sets the publish attempts and initial backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(f *Forwarder) {
		if attempts > 0 {
			f.attempts = attempts
		}
		if backoff > 0 {
			f.backoff = backoff
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Forwarder) {
		f.logger = logger
	}
}

// WithMetrics records forwarding outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Forwarder) {
		f.metrics = m
	}
}

// New creates a Forwarder publishing to sink.
func New(sink Sink, opts ...Option) *Forwarder {
	f := &Forwarder{
		sink:      sink,
		queue:     make(chan model.Event, defaultQueueSize),
		batchSize: defaultBatchSize,
		attempts:  defaultAttempts,
		backoff:   defaultBackoff,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Enqueue schedules event for publication without blocking. It reports
// false when the queue is full and the event was dropped.
func (f *Forwarder) Enqueue(event model.Event) bool {
	select {
	case f.queue <- event:
		return true
	default:
		f.metrics.Forwarded(resultQueueFull)
		f.logger.Warn("forward queue full, dropping event",
			"event_id", event.ID,
			"service", event.Service,
		)
		return false
	}
}

// Run publishes queued events until ctx is cancelled, then drains what is
// left with a short grace period and closes the sink.
func (f *Forwarder) Run(ctx context.Context) error {
	defer func() {
		if err := f.sink.Close(); err != nil {
			f.logger.Warn("failed to close forward sink", "error", err)
		}
	}()

	pubCtx, cancel := graceContext(ctx, drainGracePeriod)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			f.drain(pubCtx)
			return nil
		case ev := <-f.queue:
			f.publish(pubCtx, f.collect(ev))
		}
	}
}

// graceContext returns a context that is cancelled grace after parent is
// done. Batches in flight at shutdown keep retrying within that window.
func graceContext(parent context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	var timer *time.Timer
	var mu sync.Mutex
	stop := context.AfterFunc(parent, func() {
		mu.Lock()
		defer mu.Unlock()
		timer = time.AfterFunc(grace, cancel)
	})
	return ctx, func() {
		stop()
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		cancel()
	}
}

// collect gathers first plus whatever is immediately available.
func (f *Forwarder) collect(first model.Event) []model.Event {
	batch := []model.Event{first}
	for len(batch) < f.batchSize {
		select {
		case ev := <-f.queue:
			batch = append(batch, ev)
		default:
			return batch
		}
	}
	return batch
}

func (f *Forwarder) publish(ctx context.Context, batch []model.Event) {
	err := retry(ctx, f.attempts, f.backoff, func() error {
		return f.sink.Publish(ctx, batch)
	})
	if err != nil {
		for range batch {
			f.metrics.Forwarded(resultPublishFail)
		}
		f.logger.Error("failed to forward events", "count", len(batch), "error", err)
		return
	}
	for range batch {
		f.metrics.Forwarded(resultPublished)
	}
	f.logger.Debug("forwarded events", "count", len(batch))
}

func (f *Forwarder) drain(ctx context.Context) {
	for {
		select {
		case ev := <-f.queue:
			f.publish(ctx, f.collect(ev))
		default:
			return
		}
	}
}
