package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestEveryN tests the fixed interval pacer.
func TestEveryN(t *testing.T) {
	t.Parallel()

	t.Run("pauses only on multiples", func(t *testing.T) {
		t.Parallel()

		p := EveryN(2, 20*time.Millisecond)
		ctx := context.Background()

		start := time.Now()
		if err := p.Wait(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if time.Since(start) >= 20*time.Millisecond {
			t.Error("expected no pause after item 1")
		}

		start = time.Now()
		if err := p.Wait(ctx, 2); err != nil {
			t.Fatal(err)
		}
		if time.Since(start) < 20*time.Millisecond {
			t.Error("expected a pause after item 2")
		}
	})

	t.Run("cancelled while pausing", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := EveryN(1, time.Hour).Wait(ctx, 1); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("non-positive settings disable pacing", func(t *testing.T) {
		t.Parallel()

		if _, ok := EveryN(0, time.Second).(noPacing); !ok {
			t.Error("expected NoPacing for n=0")
		}
		if _, ok := EveryN(5, 0).(noPacing); !ok {
			t.Error("expected NoPacing for a zero pause")
		}
	})
}

// TestRateLimit tests the token bucket pacer.
func TestRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("burst passes then waits", func(t *testing.T) {
		t.Parallel()

		p := RateLimit(20, 1)
		ctx := context.Background()

		start := time.Now()
		for i := 1; i <= 3; i++ {
			if err := p.Wait(ctx, i); err != nil {
				t.Fatal(err)
			}
		}
		if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
			t.Errorf("expected about 100ms for 3 waits at 20/s, got %v", elapsed)
		}
	})

	t.Run("zero rate disables pacing", func(t *testing.T) {
		t.Parallel()

		if _, ok := RateLimit(0, 1).(noPacing); !ok {
			t.Error("expected NoPacing")
		}
	})
}

// TestNoPacing tests that NoPacing only reports cancellation.
func TestNoPacing(t *testing.T) {
	t.Parallel()

	if err := NoPacing().Wait(context.Background(), 5); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NoPacing().Wait(ctx, 5); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
