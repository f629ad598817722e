package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/lure/internal/classify"
	"github.com/nao1215/lure/internal/database"
	"github.com/nao1215/lure/internal/fingerprint"
	"github.com/nao1215/lure/internal/metrics"
	"github.com/nao1215/lure/internal/model"
)

// Extractor builds the fingerprint request for an event.
type Extractor func(event *model.Event) fingerprint.Request

// FullRequest fingerprints an event by its headers, payload and path.
func FullRequest(event *model.Event) fingerprint.Request {
	return fingerprint.Request{
		Headers:     event.Headers,
		Payload:     event.Payload,
		Path:        event.Path,
		RequestType: event.RequestType,
	}
}

// RequestTypeOnly fingerprints an event by a fixed request type, ignoring
// every other field. SSH and FTP sessions are fingerprinted this way.
func RequestTypeOnly(requestType string) Extractor {
	return func(event *model.Event) fingerprint.Request {
		rt := requestType
		if rt == "" {
			rt = event.RequestType
		}
		return fingerprint.Request{Headers: map[string]string{}, RequestType: rt}
	}
}

// FingerprintStep sets event.Tool.
type FingerprintStep struct {
	extract Extractor
	metrics *metrics.Metrics
}

// NewFingerprintStep creates a fingerprint step. A nil extract uses FullRequest.
func NewFingerprintStep(extract Extractor, m *metrics.Metrics) *FingerprintStep {
	if extract == nil {
		extract = FullRequest
	}
	return &FingerprintStep{extract: extract, metrics: m}
}

// Name returns the step name.
func (s *FingerprintStep) Name() string {
	return "fingerprint"
}

// Do executes the fingerprint step.
func (s *FingerprintStep) Do(_ context.Context, event *model.Event) error {
	event.Tool = fingerprint.DetectTool(s.extract(event))
	s.metrics.ToolDetected(string(event.Tool))
	return nil
}

// ClassifyStep sets event.Classification.
type ClassifyStep struct {
	classifier classify.Classifier
}

// NewClassifyStep creates a classify step.
func NewClassifyStep(c classify.Classifier) *ClassifyStep {
	return &ClassifyStep{classifier: c}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return "classify"
}

// Do executes the classify step.
func (s *ClassifyStep) Do(ctx context.Context, event *model.Event) error {
	event.Classification = s.classifier.Classify(ctx, event)
	return nil
}

// Enricher resolves metadata for a remote address.
type Enricher interface {
	Lookup(ip string) map[string]any
}

// EnrichStep merges enrichment metadata into event.Meta. Keys already
// present on the event are kept.
type EnrichStep struct {
	enricher Enricher
}

// NewEnrichStep creates an enrich step.
func NewEnrichStep(e Enricher) *EnrichStep {
	return &EnrichStep{enricher: e}
}

// Name returns the step name.
func (s *EnrichStep) Name() string {
	return "enrich"
}

// Do executes the enrich step.
func (s *EnrichStep) Do(_ context.Context, event *model.Event) error {
	meta := s.enricher.Lookup(event.IP)
	if len(meta) == 0 {
		return nil
	}
	if event.Meta == nil {
		event.Meta = make(map[string]any, len(meta))
	}
	for k, v := range meta {
		if _, ok := event.Meta[k]; !ok {
			event.Meta[k] = v
		}
	}
	return nil
}

// Store is the durable append path.
type Store interface {
	Append(ctx context.Context, event *model.Event) (int64, error)
}

// PersistStep appends the event to the store.
type PersistStep struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPersistStep creates a persist step.
func NewPersistStep(store Store, m *metrics.Metrics, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{store: store, metrics: m, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do executes the persist step.
func (s *PersistStep) Do(ctx context.Context, event *model.Event) error {
	start := time.Now()
	id, err := s.store.Append(ctx, event)
	if err != nil {
		reason := "encode"
		if errors.Is(err, database.ErrStorageUnavailable) {
			reason = "storage"
		}
		s.metrics.EventDropped(string(event.Service), reason)
		return err
	}

	s.metrics.EventRecorded(string(event.Service), string(event.Classification), time.Since(start))
	s.logger.Info("event recorded",
		"event_id", id,
		"service", event.Service,
		"remote", event.IP,
		"type", event.RequestType,
		"path", event.Path,
		"tool", event.Tool,
		"classification", event.Classification,
	)
	return nil
}

// Publisher accepts stored events for asynchronous forwarding.
type Publisher interface {
	Enqueue(event model.Event) bool
}

// ForwardStep hands stored events to a Publisher. A full queue is not an
// error; the publisher accounts for dropped events.
type ForwardStep struct {
	publisher Publisher
}

// NewForwardStep creates a forward step.
func NewForwardStep(p Publisher) *ForwardStep {
	return &ForwardStep{publisher: p}
}

// Name returns the step name.
func (s *ForwardStep) Name() string {
	return "forward"
}

// Do executes the forward step.
func (s *ForwardStep) Do(_ context.Context, event *model.Event) error {
	s.publisher.Enqueue(event.Clone())
	return nil
}
