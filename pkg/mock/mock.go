// Package mock generates synthetic registration traffic for demos and load
// shaping. A generator goroutine invents a fixed population of endpoint-like
// keys and registers paced events against them until the context ends.
package mock

import (
	"context"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog/log"

	"github.com/Borislavv/invocation-counter/pkg/clock"
	"github.com/Borislavv/invocation-counter/pkg/keyed"
	"github.com/Borislavv/invocation-counter/pkg/rate"
)

// Registrar is the write surface the generator drives; both the global ring
// and the keyed registry satisfy it through the traffic sink below.
type Registrar interface {
	Register(t uint64)
}

// GenerateKeys invents num endpoint-like keys ("GET /v1/...") for synthetic
// traffic and benchmarks.
func GenerateKeys(num int) []string {
	faker := gofakeit.New(0)
	keys := make([]string, 0, num)
	for i := 0; i < num; i++ {
		keys = append(keys, faker.HTTPMethod()+" /"+faker.Word()+"/"+faker.Word())
	}
	return keys
}

// StreamEvents registers paced synthetic events against the given global
// registrar and keyed registry until ctx is done. Pacing comes from the
// limiter's token channel; event times come from the coarse clock.
func StreamEvents(
	ctx context.Context,
	ring Registrar,
	registry *keyed.Registry,
	clk *clock.Clock,
	limiter *rate.Limiter,
	keysNum int,
) {
	keys := GenerateKeys(keysNum)
	faker := gofakeit.New(0)

	log.Info().Msgf("[mock] streaming synthetic events at %d/s over %d keys", limiter.PerSec(), len(keys))

	var produced uint64
	defer func() { log.Info().Msgf("[mock] stopped after %d synthetic events", produced) }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-limiter.Chan():
			now := clk.Now()
			ring.Register(now)
			registry.Register(keys[faker.IntRange(0, len(keys)-1)], now)
			produced++
		}
	}
}
