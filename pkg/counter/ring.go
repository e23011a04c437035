// Package counter implements a fixed-memory ring of time-bucketed counters
// answering "how many events happened in [a, b)?" without storing individual
// timestamps.
//
// Time is an abstract unsigned 64-bit counter chosen by the caller (ticks,
// seconds, milliseconds); larger means later. The ring divides time into
// intervals of 2^slotSizeExp units and keeps 2^slotCountExp of them, so the
// trailing window it can answer for spans slotCount*slotSize units. Slots are
// reused circularly: when a new interval maps onto an occupied slot the old
// interval's count is discarded. That forgetting is the point — memory stays
// O(slotCount) forever and counts are approximate at slot granularity.
package counter

import (
	"fmt"
	"sync/atomic"
)

// Ring is a concurrent sliding-window event counter.
//
// All methods are safe for concurrent use without external locking. Mutation
// is per-slot and lock-free; concurrent registrations racing a slot rollover
// resolve by physical write order ("last writer wins"), which may drop a
// bounded number of counts. CountIn reads slots without a global snapshot and
// is an eventually-consistent aggregate, not a linearizable one.
type Ring struct {
	slots        []slot
	slotCountExp uint8
	slotSizeExp  uint8
	mask         uint64 // slotCount - 1, index mask
	maxTime      atomic.Uint64
}

// New allocates a Ring with 2^slotCountExp slots of 2^slotSizeExp time units
// each. The exponent sum is capped at 63 so that capacity arithmetic cannot
// wrap 64-bit time.
func New(slotCountExp, slotSizeExp uint8) (*Ring, error) {
	if int(slotCountExp)+int(slotSizeExp) > 63 {
		return nil, fmt.Errorf(
			"counter: slotCountExp(%d)+slotSizeExp(%d) exceeds 63, window would overflow u64",
			slotCountExp, slotSizeExp,
		)
	}
	return &Ring{
		slots:        make([]slot, 1<<slotCountExp),
		slotCountExp: slotCountExp,
		slotSizeExp:  slotSizeExp,
		mask:         (1 << slotCountExp) - 1,
	}, nil
}

// SlotCount returns the number of slots in the ring.
func (r *Ring) SlotCount() uint64 { return uint64(len(r.slots)) }

// SlotSize returns the span of one slot in time units.
func (r *Ring) SlotSize() uint64 { return 1 << r.slotSizeExp }

// Capacity returns the total trailing-window span in time units.
func (r *Ring) Capacity() uint64 { return r.SlotCount() << r.slotSizeExp }

// Watermark returns the highest time value ever observed by Register
// (best-effort under contention; see Register).
func (r *Ring) Watermark() uint64 { return r.maxTime.Load() }

// Register records one event at the given time.
//
// If the target slot already represents the event's interval its count is
// incremented; otherwise the slot is rolled over to the new interval and its
// previous count is discarded. An out-of-order registration for an older
// interval may also roll the slot back — accepted approximation noise, the
// ring does not enforce forward-only rollover.
func (r *Ring) Register(t uint64) {
	interval := t >> r.slotSizeExp
	intervalStart := interval << r.slotSizeExp

	s := &r.slots[interval&r.mask]
	if s.intervalStart.Load() == intervalStart {
		s.count.Add(1)
	} else {
		s.intervalStart.Store(intervalStart)
		s.count.Store(1)
	}

	// Advance the watermark. A lost CAS under contention is fine: the
	// watermark only bounds query validity, it never participates in counting,
	// and a concurrent winner stored an even larger (or equal epoch) value.
	if seen := r.maxTime.Load(); seen < t {
		r.maxTime.CompareAndSwap(seen, t)
	}
}

// CountIn returns the approximate number of events with start <= t < end.
//
// The requested range is aligned to slot boundaries (start floors; end stays
// put when already on a boundary, otherwise rounds up to the next one) and
// intersected with the ring's currently valid window, which trails the
// watermark by the ring capacity. Slots whose interval fell out of that
// window are ignored even if not physically reset yet. Resolution is one
// slot, so counts near the range edges are approximate.
func (r *Ring) CountIn(start, end uint64) uint32 {
	if start >= end {
		return 0
	}

	ringEnd := ((r.maxTime.Load() >> r.slotSizeExp) + 1) << r.slotSizeExp
	ringStart := saturatingSub(ringEnd, r.Capacity())

	askedStart := start >> r.slotSizeExp << r.slotSizeExp
	askedEnd := end
	if end&(r.SlotSize()-1) != 0 {
		// mid-slot end pulls the whole containing slot in
		askedEnd = ((end >> r.slotSizeExp) + 1) << r.slotSizeExp
	}

	validStart := max(ringStart, askedStart)
	validEnd := min(ringEnd, askedEnd)

	var total uint32
	for i := range r.slots {
		s := &r.slots[i]
		if ts := s.intervalStart.Load(); ts >= validStart && ts < validEnd {
			total += s.count.Load()
		}
	}
	return total
}

// CountTrailingWindow returns the approximate number of events within the
// ring's full capacity trailing now, inclusive of now itself.
func (r *Ring) CountTrailingWindow(now uint64) uint32 {
	return r.CountIn(saturatingSub(now, r.Capacity()), now+1)
}

// Reset zeroes every slot and the watermark. Not atomic with respect to
// concurrent registrations; intended for operational resets, not hot paths.
func (r *Ring) Reset() {
	for i := range r.slots {
		r.slots[i].intervalStart.Store(0)
		r.slots[i].count.Store(0)
	}
	r.maxTime.Store(0)
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
