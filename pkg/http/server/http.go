package httpserver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/Borislavv/invocation-counter/pkg/http/server/controller"
	"github.com/Borislavv/invocation-counter/pkg/http/server/middleware"
)

// Server is the transport boundary of the service: a composed fasthttp
// server that shuts down with the context.
type Server interface {
	ListenAndServe()
	Shutdown()
}

// Config is the slice of application configuration the server needs.
type Config interface {
	ServerName() string
	ServerPort() string
}

type HTTP struct {
	ctx    context.Context
	config Config
	server *fasthttp.Server
}

func New(
	ctx context.Context,
	config Config,
	controllers []controller.HttpController,
	middlewares []middleware.HttpMiddleware,
) (*HTTP, error) {
	s := &HTTP{ctx: ctx, config: config}
	s.initServer(s.buildRouter(controllers), middlewares)
	return s, nil
}

func (s *HTTP) ListenAndServe() {
	wg := &sync.WaitGroup{}
	defer wg.Wait()

	wg.Add(1)
	go s.serve(wg)

	wg.Add(1)
	go s.shutdown(wg)
}

// Shutdown stops the listener outside of context cancellation (tests).
func (s *HTTP) Shutdown() {
	_ = s.server.Shutdown()
}

func (s *HTTP) serve(wg *sync.WaitGroup) {
	defer wg.Done()

	name := s.config.ServerName()
	port := s.config.ServerPort()
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	log.Info().Msgf("[server] %v was started on %v", name, port)
	defer log.Info().Msgf("[server] %v was stopped on %v", name, port)

	if err := s.server.ListenAndServe(port); err != nil {
		log.Error().Err(err).Msgf("[server] %v failed to listen and serve port %v: %v", name, port, err.Error())
	}
}

func (s *HTTP) shutdown(wg *sync.WaitGroup) {
	defer wg.Done()

	<-s.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	if err := s.server.ShutdownWithContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn().Msgf("[server] %v shutdown failed: %v", s.config.ServerName(), err.Error())
		}
		return
	}
}

func (s *HTTP) buildRouter(controllers []controller.HttpController) *router.Router {
	r := router.New()
	for _, contr := range controllers {
		contr.AddRoute(r)
	}
	return r
}

func (s *HTTP) wrapMiddlewaresOverRouterHandler(
	handler fasthttp.RequestHandler,
	middlewares []middleware.HttpMiddleware,
) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		s.mergeMiddlewares(handler, middlewares)(ctx)
	}
}

func (s *HTTP) mergeMiddlewares(
	handler fasthttp.RequestHandler,
	middlewares []middleware.HttpMiddleware,
) fasthttp.RequestHandler {
	// last middlewares must be applied at the end
	// in this case we must start the cycle from the end of slice
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i].Middleware(handler)
	}
	return handler
}

func (s *HTTP) initServer(r *router.Router, middlewares []middleware.HttpMiddleware) {
	s.server = &fasthttp.Server{
		Handler:                       s.wrapMiddlewaresOverRouterHandler(r.Handler, middlewares),
		GetOnly:                       true,                   // The whole API surface is GET, reject other methods early.
		ReduceMemoryUsage:             true,                   // Reuse internal buffers aggressively to lower memory footprint and GC overhead.
		DisablePreParseMultipartForm:  true,                   // No multipart forms anywhere on this surface.
		DisableHeaderNamesNormalizing: true,                   // Prevent normalization of header names to save CPU cycles when handling high request rates.
		CloseOnShutdown:               true,                   // Ensure that all open connections are closed when the server shuts down gracefully.
		Concurrency:                   1_000_000,              // Registration traffic is the point; keep headroom for bursts.
		ReadBufferSize:                4 * 1024,               // Requests are tiny query-string calls, 4 KiB is plenty.
		WriteBufferSize:               4 * 1024,               // Responses are small JSON payloads.
		ReadTimeout:                   500 * time.Millisecond, // Maximum time allowed to read the full request to mitigate slowloris attacks.
		WriteTimeout:                  500 * time.Millisecond, // Maximum time allowed to write the response to the client to prevent stalled connections.
		IdleTimeout:                   60 * time.Second,       // Maximum idle time before a keep-alive connection is closed.
		TCPKeepalive:                  true,                   // Enable OS-level TCP keep-alive probes to detect and clean up dead peer connections.
		TCPKeepalivePeriod:            30 * time.Second,       // Interval between TCP keep-alive probes.
		NoDefaultServerHeader:         true,                   // Suppress the default "Server" response header; the server-name middleware owns it.
		MaxRequestBodySize:            1 << 20,                // 1 MiB guard; the API carries no bodies at all.
	}
}
