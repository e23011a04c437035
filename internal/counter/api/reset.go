package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/Borislavv/invocation-counter/internal/counter/config"
	"github.com/Borislavv/invocation-counter/pkg/counter"
	"github.com/Borislavv/invocation-counter/pkg/keyed"
)

// ResetController zeroes the global ring and drops all keyed rings behind a
// short-lived token handshake, so a stray GET cannot wipe the counters.
type ResetController struct {
	ring     *counter.Ring
	registry *keyed.Registry
	cfg      *config.Config
	mu       sync.Mutex
	token    string
	expires  time.Time
}

func NewResetController(cfg *config.Config, ring *counter.Ring, registry *keyed.Registry) *ResetController {
	return &ResetController{cfg: cfg, ring: ring, registry: registry}
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

type resetStatusResponse struct {
	Reset bool   `json:"reset,omitempty"`
	Error string `json:"error,omitempty"`
}

// HandleReset is mounted at GET /counter/reset.
// Without ?token, returns a valid token (5min TTL).
// With ?token, validates, resets the counters, logs, and returns status.
func (c *ResetController) HandleReset(ctx *fasthttp.RequestCtx) {
	now := time.Now()
	raw := string(ctx.QueryArgs().Peek("token"))

	if raw == "" {
		// return or reuse token
		c.mu.Lock()
		if c.token != "" && now.Before(c.expires) {
			tok, exp := c.token, c.expires
			c.mu.Unlock()
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.SetContentType("application/json")
			_ = json.NewEncoder(ctx).Encode(tokenResponse{tok, exp.UnixMilli()})
			return
		}
		c.mu.Unlock()

		// generate new token
		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			log.Error().Err(err).Msg("token generation failed")
			ctx.Error("internal error", fasthttp.StatusInternalServerError)
			return
		}
		tok := hex.EncodeToString(b)
		exp := now.Add(5 * time.Minute)

		c.mu.Lock()
		c.token = tok
		c.expires = exp
		c.mu.Unlock()

		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetContentType("application/json")
		_ = json.NewEncoder(ctx).Encode(tokenResponse{tok, exp.UnixMilli()})
		return
	}

	// validate provided token
	c.mu.Lock()
	valid := raw == c.token && now.Before(c.expires)
	c.token = ""
	c.expires = time.Time{}
	c.mu.Unlock()

	if !valid {
		ctx.SetStatusCode(fasthttp.StatusForbidden)
		ctx.SetContentType("application/json")
		_ = json.NewEncoder(ctx).Encode(resetStatusResponse{Error: "invalid or expired token"})
		return
	}

	c.ring.Reset()
	c.registry.Clear()

	logEvent := log.Info()
	if c.cfg.IsProd() {
		logEvent.
			Str("token", raw).
			Str("ip", ctx.RemoteAddr().String()).
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Str("user_agent", string(ctx.UserAgent())).
			Time("time", time.Now())
	}
	logEvent.Msg("counters reset")

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(resetStatusResponse{Reset: true})
}

// AddRoute attaches the reset route to the given router.
func (c *ResetController) AddRoute(r *router.Router) {
	r.GET("/counter/reset", c.HandleReset)
}
