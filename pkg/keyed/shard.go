package keyed

import (
	"sync"
	"sync/atomic"

	"github.com/Borislavv/invocation-counter/pkg/counter"
)

// shard is a single partition of the registry: an independent map of hashed
// keys to rings behind its own RWMutex.
type shard struct {
	*sync.RWMutex
	rings map[uint64]*counter.Ring
	len   int64 // atomic
}

func newShard(preallocate int) *shard {
	return &shard{
		RWMutex: &sync.RWMutex{},
		rings:   make(map[uint64]*counter.Ring, preallocate),
	}
}

// Len returns the number of rings currently tracked by this shard.
func (s *shard) Len() int64 {
	return atomic.LoadInt64(&s.len)
}

func (s *shard) get(key uint64) (*counter.Ring, bool) {
	s.RLock()
	r, ok := s.rings[key]
	s.RUnlock()
	return r, ok
}

// getOrCreate returns the ring for key, creating it with the given exponents
// on first sight. The double-checked write lock keeps concurrent creators
// from leaking rings.
func (s *shard) getOrCreate(key uint64, slotCountExp, slotSizeExp uint8) *counter.Ring {
	if r, ok := s.get(key); ok {
		return r
	}

	s.Lock()
	defer s.Unlock()
	if r, ok := s.rings[key]; ok {
		return r
	}

	// exponents were validated at registry construction
	r, _ := counter.New(slotCountExp, slotSizeExp)
	s.rings[key] = r
	atomic.AddInt64(&s.len, 1)
	return r
}

func (s *shard) clear() {
	s.Lock()
	clear(s.rings)
	atomic.StoreInt64(&s.len, 0)
	s.Unlock()
}
