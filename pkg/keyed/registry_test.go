package keyed

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t testing.TB) *Registry {
	t.Helper()
	// 4 shards, rings of 8 slots x 16 units = 128-unit windows
	r, err := NewRegistry(2, 3, 4, 0)
	require.NoError(t, err)
	return r
}

func TestRegistry_RejectsOverflowingExponents(t *testing.T) {
	_, err := NewRegistry(2, 40, 40, 0)
	assert.Error(t, err)
}

func TestRegistry_KeysAreIndependent(t *testing.T) {
	r := newTestRegistry(t)

	r.Register("GET /users", 10)
	r.Register("GET /users", 11)
	r.Register("GET /orders", 10)

	assert.Equal(t, uint32(2), r.CountIn("GET /users", 0, 16))
	assert.Equal(t, uint32(1), r.CountIn("GET /orders", 0, 16))
	assert.Equal(t, uint32(0), r.CountIn("GET /unknown", 0, 16))
	assert.Equal(t, int64(2), r.Len())
}

func TestRegistry_TrailingWindow(t *testing.T) {
	r := newTestRegistry(t)

	r.Register("job", 10)
	r.Register("job", 25)
	assert.Equal(t, uint32(2), r.CountTrailingWindow("job", 25))
	assert.Equal(t, uint32(0), r.CountTrailingWindow("missing", 25))
}

func TestRegistry_Clear(t *testing.T) {
	r := newTestRegistry(t)

	r.Register("a", 1)
	r.Register("b", 2)
	require.Equal(t, int64(2), r.Len())

	r.Clear()
	assert.Equal(t, int64(0), r.Len())
	assert.Equal(t, uint32(0), r.CountIn("a", 0, 16))
}

func TestRegistry_ConcurrentMixedKeys(t *testing.T) {
	r := newTestRegistry(t)

	const goroutines = 8
	const perGoroutine = 500

	wg := sync.WaitGroup{}
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			key := "worker-" + strconv.Itoa(id%4)
			for i := 0; i < perGoroutine; i++ {
				r.Register(key, uint64(i%100))
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, int64(4), r.Len())
	for i := 0; i < 4; i++ {
		got := r.CountIn("worker-"+strconv.Itoa(i), 0, 128)
		assert.Positive(t, got)
		assert.LessOrEqual(t, got, uint32(2*perGoroutine))
	}
}

func BenchmarkRegistry_Register(b *testing.B) {
	r, err := NewRegistry(4, 6, 10, 0)
	if err != nil {
		b.Fatal(err)
	}
	keys := [8]string{"a", "b", "c", "d", "e", "f", "g", "h"}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		var t uint64
		for pb.Next() {
			t++
			r.Register(keys[t&7], t)
		}
	})
}
