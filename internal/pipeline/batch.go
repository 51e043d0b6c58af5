package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/ytscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// Factory builds the pipeline and the empty report for one target.
type Factory func(target string) (*Pipeline, *model.ScanReport, error)

// BatchProcessor scans several targets with bounded concurrency.
type BatchProcessor struct {
	factory     Factory
	concurrency int
	pacer       Pacer
	logger      *slog.Logger

	mu      sync.Mutex
	results []*model.ScanReport
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
// Default is 1, which scans targets one after another.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithTargetPacer sets the pacer waited on before every target. Wait
// receives the number of targets started so far, 0 for the first. The
// pacer is shared by all workers, so a rate limiter spaces target starts
// at any concurrency.
func WithTargetPacer(p Pacer) BatchOption {
	return func(b *BatchProcessor) {
		if p != nil {
			b.pacer = p
		}
	}
}

// NewBatchProcessor creates a BatchProcessor. factory is called once per
// target so that no pipeline state is shared between scans.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 1,
		pacer:       NoPacing(),
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch scans targets and returns one report per target, in input
// order. A failed scan is recorded in its report and does not stop the
// others. The error is non-nil only when ctx ended the batch; reports of
// targets that never started are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.ScanReport, error) {
	bp.logger.Info("starting batch processing",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	bp.results = make([]*model.ScanReport, len(targets))
	err := bp.run(ctx, targets, func(report *model.ScanReport, index int) {
		bp.mu.Lock()
		bp.results[index] = report
		bp.mu.Unlock()
	})

	bp.logger.Info("batch processing complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)
	return bp.results, err
}

// ProcessBatchWithCallback scans targets and calls callback with each
// finished report and the index of its target. callback runs on the
// scanning goroutine and must be safe for concurrent use when the
// concurrency is above 1.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(report *model.ScanReport, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)
	return bp.run(ctx, targets, callback)
}

func (bp *BatchProcessor) run(ctx context.Context, targets []string, done func(*model.ScanReport, int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			if err := bp.pacer.Wait(ctx, i); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("scanning target",
				"target", target,
				"index", i+1,
				"total", len(targets),
			)
			done(bp.scan(ctx, target), i)
			return nil
		})
	}
	return g.Wait()
}

// scan runs the pipeline of one target. Errors end up in the report.
func (bp *BatchProcessor) scan(ctx context.Context, target string) *model.ScanReport {
	p, report, err := bp.factory(target)
	if err != nil {
		report = model.NewScanReport(target, "")
		report.SetError(err)
		bp.logger.Warn("cannot scan target", "target", target, "error", err)
		return report
	}

	if err := p.Execute(ctx, report); err != nil {
		if isCancellation(err) {
			bp.logger.Warn("scan interrupted", "target", target, "error", err)
		} else {
			bp.logger.Warn("scan failed", "target", target, "error", err)
		}
		return report
	}
	bp.logger.Info("scan completed", "target", target, "success", report.Success)
	return report
}
