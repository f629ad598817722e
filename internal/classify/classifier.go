package classify

import (
	"context"
	"strings"

	"github.com/nao1215/lure/internal/model"
)

// Classifier labels one event. Implementations may keep state across calls.
type Classifier interface {
	Classify(ctx context.Context, event *model.Event) model.Classification
}

// HistoryClassifier adapts the timing Engine to the Classifier interface.
// Every call appends exactly one timestamp for the event's address.
type HistoryClassifier struct {
	engine *Engine
}

// NewHistoryClassifier returns a Classifier backed by engine.
func NewHistoryClassifier(engine *Engine) *HistoryClassifier {
	return &HistoryClassifier{engine: engine}
}

// Classify implements Classifier.
func (c *HistoryClassifier) Classify(_ context.Context, event *model.Event) model.Classification {
	return c.engine.Observe(event.IP, event.Tool)
}

type attemptKey struct{}

// WithAttempt returns a context carrying the 1-based login attempt number
// of the current session.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey{}, attempt)
}

// AttemptFromContext returns the attempt number stored by WithAttempt, or 0.
func AttemptFromContext(ctx context.Context) int {
	n, _ := ctx.Value(attemptKey{}).(int)
	return n
}

// AttemptClassifier labels repeated login attempts within a session as bot.
type AttemptClassifier struct{}

// Classify returns bot when the attempt carried by ctx is greater than one.
func (AttemptClassifier) Classify(ctx context.Context, _ *model.Event) model.Classification {
	if AttemptFromContext(ctx) > 1 {
		return model.ClassificationBot
	}
	return model.ClassificationUnknown
}

// botVerbs are the FTP verbs issued by credential-stuffing clients.
var botVerbs = map[string]bool{
	"USER": true,
	"PASS": true,
	"LIST": true,
}

// VerbClassifier labels FTP commands by their verb.
type VerbClassifier struct{}

// Classify returns bot for USER, PASS and LIST, unknown otherwise.
func (VerbClassifier) Classify(_ context.Context, event *model.Event) model.Classification {
	if botVerbs[strings.ToUpper(event.RequestType)] {
		return model.ClassificationBot
	}
	return model.ClassificationUnknown
}
