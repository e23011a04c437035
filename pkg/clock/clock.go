// Package clock provides a coarse, atomically cached time source translating
// wall time into the abstract units the counter operates on. The counter core
// never depends on it; the HTTP surface uses it when callers omit explicit
// timestamps.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock maps wall time to abstract time units of a fixed duration. The
// current unit is cached in an atomic and refreshed by a ticker goroutine, so
// hot paths read one atomic instead of calling time.Now.
type Clock struct {
	unit    time.Duration
	nowUnit atomic.Uint64
	done    chan struct{}
}

// Start creates a Clock with the given unit duration, refreshing the cached
// value at the given resolution. The returned stop function terminates the
// refresher goroutine.
func Start(unit, resolution time.Duration) (*Clock, func()) {
	c := &Clock{unit: unit, done: make(chan struct{})}
	c.nowUnit.Store(uint64(time.Now().UnixNano() / int64(unit)))

	t := time.NewTicker(resolution)
	go func() {
		for {
			select {
			case tt := <-t.C:
				c.nowUnit.Store(uint64(tt.UnixNano() / int64(unit)))
			case <-c.done:
				t.Stop()
				return
			}
		}
	}()

	return c, func() { close(c.done) }
}

// Now returns the current abstract time unit.
func (c *Clock) Now() uint64 { return c.nowUnit.Load() }

// Unit returns the wall duration of one abstract time unit.
func (c *Clock) Unit() time.Duration { return c.unit }
