package bucketed

import (
	"sync"
	"testing"
)

func mustCounter(t testing.TB, bucketExp, subExp, shiftExp uint8) *Counter {
	t.Helper()
	c, err := New(bucketExp, subExp, shiftExp)
	if err != nil {
		t.Fatalf("New(%d, %d, %d) failed: %v", bucketExp, subExp, shiftExp, err)
	}
	return c
}

func TestCounter_RejectsOverflowingExponents(t *testing.T) {
	if _, err := New(32, 2, 32); err == nil {
		t.Fatal("expected error for exponent sum > 63")
	}
}

func TestCounter_AccumulateWithinWindow(t *testing.T) {
	// 4 buckets * 2^2 shift = window of 15 units
	c := mustCounter(t, 2, 2, 2)
	if c.Window() != 15 {
		t.Fatalf("window = %d, want 15", c.Window())
	}

	c.Register(10)
	c.Register(10)
	c.Register(11)

	if got := c.CountTill(11); got != 3 {
		t.Fatalf("CountTill(11) = %d, want 3", got)
	}
	if got := c.CountTill(10); got == 3 {
		t.Fatal("keys newer than the query bound must not count")
	}
}

func TestCounter_OlderKeysDropped(t *testing.T) {
	c := mustCounter(t, 2, 2, 2)

	c.Register(100)
	c.Register(100 - 32) // same bucket and sub-slot, strictly older: dropped

	if got := c.CountTill(100); got != 1 {
		t.Fatalf("CountTill(100) = %d, want 1 (older key must be dropped)", got)
	}
}

func TestCounter_NewerKeyOutsideWindowResets(t *testing.T) {
	c := mustCounter(t, 2, 2, 2)

	c.Register(4)
	c.Register(4)
	// 4 and 4+64 share bucket ((k>>2)%4) and sub-slot (k%4); the jump is far
	// beyond the 15-unit window, so the sub-slot resets instead of adding.
	c.Register(4 + 64)

	if got := c.CountTill(4 + 64); got != 1 {
		t.Fatalf("CountTill after reset = %d, want 1", got)
	}
}

func TestCounter_CountTillWindowBound(t *testing.T) {
	c := mustCounter(t, 2, 2, 2)

	c.Register(0)
	c.Register(1)
	c.Register(2)

	if got := c.CountTill(2); got != 3 {
		t.Fatalf("CountTill(2) = %d, want 3", got)
	}
	// Window is 15 units; everything above falls out of [k-15, k].
	if got := c.CountTill(100); got != 0 {
		t.Fatalf("CountTill far in the future = %d, want 0", got)
	}
}

func TestCounter_ConcurrentRegister(t *testing.T) {
	const (
		goroutines   = 8
		perGoroutine = 1_000
	)

	c := mustCounter(t, 4, 3, 2)

	wg := sync.WaitGroup{}
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				c.Register(50) // same instant, spread over one sub-slot lock
			}
		}()
	}
	wg.Wait()

	// Identical monotonic keys are never dropped, so this variant is exact here.
	if got := c.CountTill(50); got != goroutines*perGoroutine {
		t.Fatalf("CountTill(50) = %d, want %d", got, goroutines*perGoroutine)
	}
}

func BenchmarkCounter_Register(b *testing.B) {
	c := mustCounter(b, 4, 4, 4)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		var k uint64
		for pb.Next() {
			k++
			c.Register(k)
		}
	})
}
