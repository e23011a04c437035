package counter

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Borislavv/invocation-counter/internal/counter/config"
	"github.com/Borislavv/invocation-counter/internal/counter/server"
	"github.com/Borislavv/invocation-counter/pkg/clock"
	counterpkg "github.com/Borislavv/invocation-counter/pkg/counter"
	"github.com/Borislavv/invocation-counter/pkg/k8s/probe/liveness"
	"github.com/Borislavv/invocation-counter/pkg/keyed"
	"github.com/Borislavv/invocation-counter/pkg/mock"
	"github.com/Borislavv/invocation-counter/pkg/prometheus/metrics"
	"github.com/Borislavv/invocation-counter/pkg/rate"
	"github.com/Borislavv/invocation-counter/pkg/shutdown"
)

// App defines the counter application lifecycle interface.
type App interface {
	Start(gc shutdown.Gracefuller)
}

// Counter encapsulates the application state: the global ring, the keyed
// registry, the coarse clock and the HTTP server around them.
type Counter struct {
	cfg      *config.Config
	ctx      context.Context
	cancel   context.CancelFunc
	probe    liveness.Prober
	server   server.Http
	ring     *counterpkg.Ring
	registry *keyed.Registry
	clk      *clock.Clock
	clkStop  func()
	pacer    *rate.Limiter
}

// NewApp builds the Counter app, wiring the ring, registry, clock and server.
func NewApp(ctx context.Context, cfg *config.Config, probe liveness.Prober) (*Counter, error) {
	ctx, cancel := context.WithCancel(ctx)

	ring, err := counterpkg.New(cfg.Counter.Ring.SlotCountExp, cfg.Counter.Ring.SlotSizeExp)
	if err != nil {
		cancel()
		return nil, err
	}

	registry, err := keyed.NewRegistry(
		cfg.Counter.Keyed.ShardExp,
		cfg.Counter.Ring.SlotCountExp,
		cfg.Counter.Ring.SlotSizeExp,
		cfg.Counter.Keyed.PreallocatePerShard,
	)
	if err != nil {
		cancel()
		return nil, err
	}

	clk, clkStop := clock.Start(cfg.Counter.Clock.Unit, cfg.Counter.Clock.Resolution)
	meter := metrics.New()

	app := &Counter{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		probe:    probe,
		ring:     ring,
		registry: registry,
		clk:      clk,
		clkStop:  clkStop,
	}

	srv, err := server.New(ctx, cfg, ring, registry, clk, probe, meter)
	if err != nil {
		clkStop()
		cancel()
		return nil, err
	}
	app.server = srv

	if cfg.Counter.Mock.Enabled {
		app.pacer = rate.NewLimiter(ctx, cfg.Counter.Mock.EventsPerSec)
		go mock.StreamEvents(ctx, metered{ring: ring, meter: meter}, registry, clk, app.pacer, cfg.Counter.Mock.Keys)
	}

	return app, nil
}

// metered forwards mock registrations to the ring and counts them.
type metered struct {
	ring  *counterpkg.Ring
	meter metrics.Meter
}

func (m metered) Register(t uint64) {
	m.ring.Register(t)
	m.meter.IncRegistrations("mock")
}

// Start runs the HTTP server and liveness probe and blocks until shutdown.
// The Gracefuller is expected to be Done() when shutdown is complete.
func (c *Counter) Start(gc shutdown.Gracefuller) {
	defer func() {
		c.stop()
		gc.Done()
	}()

	log.Info().Msg("[app] starting counter")

	waitCh := make(chan struct{})

	go func() {
		defer close(waitCh)
		c.probe.Watch(c) // does not block
		c.server.Start() // blocks until the server is stopped
	}()

	log.Info().Msg("[app] counter has been started")

	<-waitCh
}

// stop cancels the main application context and releases the clock/pacer.
func (c *Counter) stop() {
	log.Info().Msg("[app] stopping counter")

	defer c.cancel()

	if c.pacer != nil {
		c.pacer.Stop()
	}
	c.clkStop()

	log.Info().Msg("[app] counter has been stopped")
}

// IsAlive is called by liveness probes to check app health.
func (c *Counter) IsAlive(_ context.Context) bool {
	if !c.server.IsAlive() {
		log.Info().Msg("[app] http server has gone away")
		return false
	}
	return true
}
