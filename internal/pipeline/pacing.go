package pipeline

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out page fetches so that YouTube does not throttle the
// scanner. Wait is called with the 1-based number of the item just
// processed and blocks until the next fetch may start. Implementations
// are safe for concurrent use.
type Pacer interface {
	Wait(ctx context.Context, n int) error
}

type noPacing struct{}

// NoPacing returns a Pacer that never waits.
func NoPacing() Pacer {
	return noPacing{}
}

func (noPacing) Wait(ctx context.Context, _ int) error {
	return ctx.Err()
}

type everyN struct {
	n     int
	pause time.Duration
}

// EveryN returns a Pacer that pauses after every n-th item.
// A non-positive n or pause disables pacing.
func EveryN(n int, pause time.Duration) Pacer {
	if n <= 0 || pause <= 0 {
		return NoPacing()
	}
	return everyN{n: n, pause: pause}
}

func (p everyN) Wait(ctx context.Context, n int) error {
	if n <= 0 || n%p.n != 0 {
		return ctx.Err()
	}
	return sleep(ctx, p.pause)
}

type rateLimit struct {
	limiter *rate.Limiter
}

// RateLimit returns a token bucket Pacer allowing rps fetches per second
// with bursts of up to burst fetches.
func RateLimit(rps float64, burst int) Pacer {
	if rps <= 0 {
		return NoPacing()
	}
	if burst < 1 {
		burst = 1
	}
	return rateLimit{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (p rateLimit) Wait(ctx context.Context, _ int) error {
	return p.limiter.Wait(ctx)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
