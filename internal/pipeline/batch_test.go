package pipeline

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/ytscan/internal/model"
)

// channelFactory returns a factory whose pipelines run doFunc once.
func channelFactory(doFunc func(ctx context.Context, report *model.ScanReport) error) Factory {
	return func(target string) (*Pipeline, *model.ScanReport, error) {
		p := New()
		p.AddStep(&mockStep{name: "step", doFunc: doFunc})
		return p, model.NewScanReport(target, model.ScanTypeChannel), nil
	}
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(channelFactory(nil))
		if bp.concurrency != 1 {
			t.Errorf("expected default concurrency 1, got %d", bp.concurrency)
		}
		if bp.logger == nil || bp.pacer == nil {
			t.Error("expected default logger and pacer")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(channelFactory(nil), WithConcurrency(5), WithTargetPacer(EveryN(1, time.Second)))
		if bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
		if _, ok := bp.pacer.(everyN); !ok {
			t.Errorf("got pacer %T", bp.pacer)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(channelFactory(nil), WithConcurrency(0))
		if bp.concurrency != 1 {
			t.Errorf("expected concurrency 1, got %d", bp.concurrency)
		}
	})
}

// TestBatchProcessorProcessBatch tests batch scans.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("reports keep input order", func(t *testing.T) {
		t.Parallel()

		targets := []string{"a", "b", "c", "d"}
		bp := NewBatchProcessor(channelFactory(setChannel), WithConcurrency(3))

		reports, err := bp.ProcessBatch(context.Background(), targets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reports) != len(targets) {
			t.Fatalf("expected %d reports, got %d", len(targets), len(reports))
		}
		for i, r := range reports {
			if r.Target != targets[i] || !r.Success {
				t.Errorf("report %d: got %+v", i, r)
			}
		}
	})

	t.Run("a failed scan does not stop the others", func(t *testing.T) {
		t.Parallel()

		scanErr := errors.New("no data")
		bp := NewBatchProcessor(channelFactory(func(ctx context.Context, r *model.ScanReport) error {
			if r.Target == "bad" {
				return scanErr
			}
			return setChannel(ctx, r)
		}))

		reports, err := bp.ProcessBatch(context.Background(), []string{"good", "bad", "also-good"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !errors.Is(reports[1].Error, scanErr) || reports[1].Success {
			t.Errorf("got failed report %+v", reports[1])
		}
		if !reports[0].Success || !reports[2].Success {
			t.Error("expected the other scans to succeed")
		}
	})

	t.Run("factory errors become failed reports", func(t *testing.T) {
		t.Parallel()

		factoryErr := errors.New("unsupported")
		bp := NewBatchProcessor(func(string) (*Pipeline, *model.ScanReport, error) {
			return nil, nil, factoryErr
		})

		reports, err := bp.ProcessBatch(context.Background(), []string{"x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reports[0].Target != "x" || !errors.Is(reports[0].Error, factoryErr) {
			t.Errorf("got report %+v", reports[0])
		}
	})

	t.Run("respects the concurrency limit", func(t *testing.T) {
		t.Parallel()

		var running, peak atomic.Int32
		bp := NewBatchProcessor(channelFactory(func(context.Context, *model.ScanReport) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return nil
		}), WithConcurrency(2))

		if _, err := bp.ProcessBatch(context.Background(), []string{"a", "b", "c", "d", "e"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent scans, got %d", peak.Load())
		}
	})

	t.Run("target pacer runs before every target", func(t *testing.T) {
		t.Parallel()

		pacer := &countingPacer{}
		bp := NewBatchProcessor(channelFactory(nil), WithTargetPacer(pacer))

		if _, err := bp.ProcessBatch(context.Background(), []string{"a", "b", "c"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(pacer.calls, []int{0, 1, 2}) {
			t.Errorf("got pacer calls %v", pacer.calls)
		}
	})

	t.Run("rate limited targets are spaced at any concurrency", func(t *testing.T) {
		t.Parallel()

		var (
			mu     sync.Mutex
			starts []time.Time
		)
		bp := NewBatchProcessor(channelFactory(func(_ context.Context, r *model.ScanReport) error {
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
			return nil
		}), WithConcurrency(3), WithTargetPacer(RateLimit(20, 1)))

		if _, err := bp.ProcessBatch(context.Background(), []string{"a", "b", "c"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		slices.SortFunc(starts, func(a, b time.Time) int { return a.Compare(b) })
		if len(starts) != 3 {
			t.Fatalf("expected 3 scans, got %d", len(starts))
		}
		if gap := starts[2].Sub(starts[0]); gap < 80*time.Millisecond {
			t.Errorf("expected starts about 50ms apart, first to last took %v", gap)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(channelFactory(setChannel))
		reports, err := bp.ProcessBatch(ctx, []string{"a", "b"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		for _, r := range reports {
			if r != nil {
				t.Errorf("expected no report, got %+v", r)
			}
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests streaming results.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	targets := []string{"a", "b", "c"}
	bp := NewBatchProcessor(channelFactory(setChannel), WithConcurrency(3))

	var (
		mu   sync.Mutex
		seen = make(map[int]string)
	)
	err := bp.ProcessBatchWithCallback(context.Background(), targets, func(r *model.ScanReport, index int) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = r.Target
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != len(targets) {
		t.Fatalf("expected %d callbacks, got %d", len(targets), len(seen))
	}
	for i, target := range targets {
		if seen[i] != target {
			t.Errorf("index %d: got %q, expected %q", i, seen[i], target)
		}
	}
}
