// Package rate paces event producers (the synthetic traffic source) to a
// fixed number of registrations per second.
package rate

import (
	"context"

	"go.uber.org/ratelimit"
)

// Limiter wraps a leaky-bucket limiter and exposes it both as a blocking
// Take and as a channel that yields one token per permitted event, which is
// the shape the traffic generator consumes.
type Limiter struct {
	cancel context.CancelFunc
	ch     chan struct{}
	l      ratelimit.Limiter
	perSec int
}

// NewLimiter builds a limiter emitting perSec tokens per second and starts
// its provider goroutine. Stop releases it.
func NewLimiter(gCtx context.Context, perSec int) *Limiter {
	ctx, cancel := context.WithCancel(gCtx)
	limiter := &Limiter{
		cancel: cancel,
		perSec: perSec,
		ch:     make(chan struct{}),
		l:      ratelimit.New(perSec),
	}
	go limiter.provider(ctx)
	return limiter
}

func (l *Limiter) provider(ctx context.Context) {
	defer close(l.ch)
	for {
		l.l.Take()
		select {
		case <-ctx.Done():
			return
		case l.ch <- struct{}{}:
		}
	}
}

// Take blocks until the next event is permitted.
func (l *Limiter) Take() {
	l.l.Take()
}

// PerSec returns the configured events-per-second budget.
func (l *Limiter) PerSec() int {
	return l.perSec
}

// Chan yields one value per permitted event. The channel closes after Stop.
func (l *Limiter) Chan() <-chan struct{} {
	return l.ch
}

// Stop terminates the provider goroutine.
func (l *Limiter) Stop() {
	l.cancel()
}
