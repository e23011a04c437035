package middleware

import (
	"bytes"
	"sync"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

var registerPathBytes = []byte("/counter/register")

// RateLimitMiddleware guards the registration endpoint with a per-client
// token bucket. Read endpoints pass through untouched; the counter is meant
// to absorb queries, not unbounded writes from one client.
type RateLimitMiddleware struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func NewRateLimitMiddleware(rps float64, burst int) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (m *RateLimitMiddleware) limiter(client string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.limiters[client]
	if !ok {
		l = rate.NewLimiter(m.rps, m.burst)
		m.limiters[client] = l
	}
	return l
}

func (m *RateLimitMiddleware) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !bytes.Equal(ctx.Path(), registerPathBytes) {
			next(ctx)
			return
		}

		if !m.limiter(ctx.RemoteIP().String()).Allow() {
			ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
			ctx.SetBodyString(`{"error":"rate limit exceeded"}`)
			return
		}

		next(ctx)
	}
}
