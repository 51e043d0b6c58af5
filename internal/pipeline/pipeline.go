package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/ytscan/internal/model"
)

// Step is one stage of a scan. Steps run in order and share the report.
type Step interface {
	// Do runs the step. Problems that leave the report usable should be
	// logged and swallowed; a returned error is recorded in the report.
	Do(ctx context.Context, report *model.ScanReport) error

	// Name returns the step name used in logs and PerformedSteps.
	Name() string
}

// Pipeline runs steps in sequence.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running the remaining steps after a step
// fails. The first error is still recorded in the report.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps against report. Cancellation is checked before
// each step. When the pipeline finishes, report.Success tells whether the
// scan found its entity.
//
// It returns the error of the failing step unless continueOnError is set,
// and the context error when cancelled.
func (p *Pipeline) Execute(ctx context.Context, report *model.ScanReport) error {
	defer func() {
		report.Success = report.HasEntity()
	}()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"target", report.Target,
				"reason", err,
			)
			report.TimedOut = errors.Is(err, context.DeadlineExceeded)
			report.SetError(err)
			return err
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"target", report.Target,
		)

		err := step.Do(ctx, report)
		report.AddStep(step.Name())
		if err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"target", report.Target,
				"error", err,
			)
			report.SetError(err)
			if errors.Is(err, context.DeadlineExceeded) {
				report.TimedOut = true
			}
			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"target", report.Target,
		)
	}
	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
