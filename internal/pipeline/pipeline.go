package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/lure/internal/model"
)

// Step is one stage of event recording.
type Step interface {
	// Do processes the event. It may mutate the event in place.
	Do(ctx context.Context, event *model.Event) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order over each recorded event. A Pipeline
// is safe for concurrent use when its steps are.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing later steps after one fails. The
// first error is still returned from Execute.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps over event. It checks ctx before each step and
// returns the first step error.
func (p *Pipeline) Execute(ctx context.Context, event *model.Event) error {
	var firstErr error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"service", event.Service,
				"reason", err,
			)
			return err
		}

		if err := step.Do(ctx, event); err != nil {
			p.logger.Warn("step failed",
				"step", step.Name(),
				"service", event.Service,
				"remote", event.IP,
				"error", err,
			)
			if !p.continueOnError {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"service", event.Service,
			"event_id", event.ID,
		)
	}
	return firstErr
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
