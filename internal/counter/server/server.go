package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/Borislavv/invocation-counter/internal/counter/api"
	"github.com/Borislavv/invocation-counter/internal/counter/config"
	"github.com/Borislavv/invocation-counter/pkg/clock"
	"github.com/Borislavv/invocation-counter/pkg/counter"
	httpserver "github.com/Borislavv/invocation-counter/pkg/http/server"
	"github.com/Borislavv/invocation-counter/pkg/http/server/controller"
	"github.com/Borislavv/invocation-counter/pkg/http/server/middleware"
	"github.com/Borislavv/invocation-counter/pkg/k8s/probe/liveness"
	"github.com/Borislavv/invocation-counter/pkg/keyed"
	"github.com/Borislavv/invocation-counter/pkg/prometheus/metrics"
	metricscontroller "github.com/Borislavv/invocation-counter/pkg/prometheus/metrics/controller"
	metricsmiddleware "github.com/Borislavv/invocation-counter/pkg/prometheus/metrics/middleware"
)

var InitFailedErrorMessage = "[server] init. failed"

// Http interface exposes methods for starting and liveness probing.
type Http interface {
	Start()
	IsAlive() bool
}

// HttpServer wraps all dependencies required for running the HTTP server.
type HttpServer struct {
	ctx           context.Context
	cfg           *config.Config
	ring          *counter.Ring
	registry      *keyed.Registry
	clk           *clock.Clock
	probe         liveness.Prober
	metrics       metrics.Meter
	server        httpserver.Server
	isServerAlive *atomic.Bool
}

// New creates a new HttpServer, composing controllers and middlewares around
// the counter. If any step fails, returns an error.
func New(
	ctx context.Context,
	cfg *config.Config,
	ring *counter.Ring,
	registry *keyed.Registry,
	clk *clock.Clock,
	probe liveness.Prober,
	meter metrics.Meter,
) (*HttpServer, error) {
	srv := &HttpServer{
		ctx:           ctx,
		cfg:           cfg,
		ring:          ring,
		registry:      registry,
		clk:           clk,
		probe:         probe,
		metrics:       meter,
		isServerAlive: &atomic.Bool{},
	}

	if err := srv.initServer(); err != nil {
		log.Err(err).Msg(InitFailedErrorMessage)
		return nil, errors.New(InitFailedErrorMessage)
	}

	return srv, nil
}

// Start runs the HTTP server in a goroutine and waits for it to finish.
func (s *HttpServer) Start() {
	waitCh := make(chan struct{})

	go func() {
		defer close(waitCh)
		wg := &sync.WaitGroup{}
		defer wg.Wait()
		s.spawnServer(wg)
	}()

	<-waitCh
}

// IsAlive returns true if the server is marked as alive.
func (s *HttpServer) IsAlive() bool {
	return s.isServerAlive.Load()
}

func (s *HttpServer) spawnServer(wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer func() {
			s.isServerAlive.Store(false)
			wg.Done()
		}()
		s.isServerAlive.Store(true)
		s.server.ListenAndServe()
	}()
}

func (s *HttpServer) initServer() error {
	api.SetEnabled(s.cfg.Counter.Enabled)

	if server, err := httpserver.New(s.ctx, s.cfg, s.controllers(), s.middlewares()); err != nil {
		log.Err(err).Msg(InitFailedErrorMessage)
		return errors.New(InitFailedErrorMessage)
	} else {
		s.server = server
	}

	return nil
}

// controllers returns all HTTP controllers for the server (endpoints/handlers).
func (s *HttpServer) controllers() []controller.HttpController {
	return []controller.HttpController{
		liveness.NewController(s.probe),                                         // healthcheck probe endpoint
		metricscontroller.NewPrometheusMetrics(),                                // metrics endpoint
		api.NewOnOffController(),                                                // write-surface switch
		api.NewResetController(s.cfg, s.ring, s.registry),                       // token-guarded reset
		api.NewRegisterController(s.ring, s.registry, s.clk, s.metrics),         // event registration
		api.NewCountController(s.ring, s.registry, s.clk, s.metrics),            // range/window queries
	}
}

// middlewares returns the request middlewares for the server, executed in reverse order.
func (s *HttpServer) middlewares() []middleware.HttpMiddleware {
	mws := []middleware.HttpMiddleware{
		/** exec 1st. */ middleware.NewApplicationJsonMiddleware(), // sets the Content-Type: application/json
		/** exec 2nd. */ middleware.NewServerNameMiddleware(s.cfg.ServerName()),
		/** exec 3rd. */ metricsmiddleware.NewPrometheusMetrics(s.metrics),
	}
	if rl := s.cfg.Counter.Api.RateLimit; rl.Enabled {
		mws = append(mws, middleware.NewRateLimitMiddleware(rl.Rps, rl.Burst))
	}
	return mws
}
