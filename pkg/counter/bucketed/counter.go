// Package bucketed provides an alternative sliding-window counter that trades
// the ring's lock-free slots for finer-grained locking: each bucket is split
// into independently locked sub-slots so that many events hashing to the same
// bucket in the same instant contend on different mutexes.
//
// The variant assumes approximately monotonic caller-supplied time. Keys older
// than a sub-slot's stored key are silently dropped, not merged; that is the
// contract, chosen for parallelism over strict correctness under reordering.
package bucketed

import (
	"fmt"
	"sync"
)

// subSlot holds a caller-supplied time key and its accumulated count. The pair
// must change together, hence a mutex instead of two atomics.
type subSlot struct {
	mu    sync.Mutex
	key   uint64
	value uint64
}

// Counter is a sub-bucketed sliding-window event counter.
//
// It keeps 2^bucketCountExp buckets of 2^subSlotExp sub-slots each. A key maps
// to bucket (key >> groupShiftExp) % bucketCount and sub-slot key % subSlots.
// The acceptance window spans bucketCount << groupShiftExp time units: a
// sub-slot accumulates a key only while its stored key is at most one window
// behind, rolls forward for strictly newer keys, and drops older ones.
type Counter struct {
	buckets       [][]subSlot
	bucketMask    uint64
	subSlotMask   uint64
	groupShiftExp uint8
	window        uint64
}

// New allocates a Counter with 2^bucketCountExp buckets of 2^subSlotExp
// sub-slots, grouping keys by 2^groupShiftExp time units per bucket step.
func New(bucketCountExp, subSlotExp, groupShiftExp uint8) (*Counter, error) {
	if int(bucketCountExp)+int(groupShiftExp) > 63 {
		return nil, fmt.Errorf(
			"bucketed: bucketCountExp(%d)+groupShiftExp(%d) exceeds 63, window would overflow u64",
			bucketCountExp, groupShiftExp,
		)
	}

	buckets := make([][]subSlot, 1<<bucketCountExp)
	for i := range buckets {
		buckets[i] = make([]subSlot, 1<<subSlotExp)
	}

	return &Counter{
		buckets:       buckets,
		bucketMask:    (1 << bucketCountExp) - 1,
		subSlotMask:   (1 << subSlotExp) - 1,
		groupShiftExp: groupShiftExp,
		window:        uint64(len(buckets))<<groupShiftExp - 1,
	}, nil
}

// Window returns the acceptance window span in time units.
func (c *Counter) Window() uint64 { return c.window }

// Register records one event at the given key (time value).
//
// Out-of-order keys older than the sub-slot's stored key are dropped without
// retry; the caller is expected to supply approximately monotonic time.
func (c *Counter) Register(key uint64) {
	s := &c.buckets[(key>>c.groupShiftExp)&c.bucketMask][key&c.subSlotMask]

	s.mu.Lock()
	switch {
	case s.key <= key && s.key >= saturatingSub(key, c.window):
		// stored key inside the acceptance window: accumulate and keep the
		// sub-slot's key monotonically non-decreasing
		s.value++
		s.key = key
	case key > s.key:
		// strictly newer than the window: the sub-slot moves on
		s.key = key
		s.value = 1
	default:
		// older than stored: dropped
	}
	s.mu.Unlock()
}

// CountTill returns the accumulated count over every sub-slot whose stored
// key lies within the acceptance window ending at key.
func (c *Counter) CountTill(key uint64) uint64 {
	low := saturatingSub(key, c.window)

	var total uint64
	for b := range c.buckets {
		for i := range c.buckets[b] {
			s := &c.buckets[b][i]
			s.mu.Lock()
			if s.value > 0 && s.key >= low && s.key <= key {
				total += s.value
			}
			s.mu.Unlock()
		}
	}
	return total
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
