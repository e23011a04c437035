package counter

import (
	"sync/atomic"
)

// slot is one time bucket of the ring. It holds the start of the interval it
// currently represents and the number of registrations observed for it.
//
// The two fields are independent atomics. A reader racing a rollover may pair
// a fresh intervalStart with a stale count (or the reverse) between the two
// stores. That window is part of the approximation contract of the structure
// and is not synchronized away.
type slot struct {
	intervalStart atomic.Uint64
	count         atomic.Uint32
}
