// Package keyed tracks one sliding-window ring per string key (endpoint,
// client id, method name) behind a sharded map, so unrelated keys never
// contend on the same lock.
package keyed

import (
	"github.com/Borislavv/invocation-counter/pkg/counter"
	"github.com/zeebo/xxh3"
)

// Registry is a sharded map of key -> counter.Ring. Keys are hashed with
// xxh3; the shard is picked from the hash, so a hot key stays on one shard
// while its ring's own atomics absorb the write load.
type Registry struct {
	shards       []*shard
	shardMask    uint64
	slotCountExp uint8
	slotSizeExp  uint8
}

// NewRegistry builds a registry with 2^shardExp shards. Every ring created by
// the registry shares the same slot exponents, validated once here.
func NewRegistry(shardExp, slotCountExp, slotSizeExp uint8, preallocatePerShard int) (*Registry, error) {
	if _, err := counter.New(slotCountExp, slotSizeExp); err != nil {
		return nil, err
	}

	shards := make([]*shard, 1<<shardExp)
	for i := range shards {
		shards[i] = newShard(preallocatePerShard)
	}

	return &Registry{
		shards:       shards,
		shardMask:    (1 << shardExp) - 1,
		slotCountExp: slotCountExp,
		slotSizeExp:  slotSizeExp,
	}, nil
}

// Register records one event at time t for the given key, creating the key's
// ring on first sight.
func (r *Registry) Register(key string, t uint64) {
	hash := xxh3.HashString(key)
	r.shards[hash&r.shardMask].getOrCreate(hash, r.slotCountExp, r.slotSizeExp).Register(t)
}

// CountIn returns the approximate number of events for key in [start, end).
// Unknown keys count zero.
func (r *Registry) CountIn(key string, start, end uint64) uint32 {
	hash := xxh3.HashString(key)
	ring, ok := r.shards[hash&r.shardMask].get(hash)
	if !ok {
		return 0
	}
	return ring.CountIn(start, end)
}

// CountTrailingWindow returns the approximate trailing-window count for key.
// Unknown keys count zero.
func (r *Registry) CountTrailingWindow(key string, now uint64) uint32 {
	hash := xxh3.HashString(key)
	ring, ok := r.shards[hash&r.shardMask].get(hash)
	if !ok {
		return 0
	}
	return ring.CountTrailingWindow(now)
}

// Len returns the total number of tracked keys across all shards.
func (r *Registry) Len() int64 {
	var n int64
	for _, s := range r.shards {
		n += s.Len()
	}
	return n
}

// Clear drops every tracked ring.
func (r *Registry) Clear() {
	for _, s := range r.shards {
		s.clear()
	}
}
