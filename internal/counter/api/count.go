package api

import (
	"encoding/json"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/Borislavv/invocation-counter/pkg/clock"
	"github.com/Borislavv/invocation-counter/pkg/counter"
	serverutils "github.com/Borislavv/invocation-counter/pkg/http/server/utils"
	"github.com/Borislavv/invocation-counter/pkg/keyed"
	"github.com/Borislavv/invocation-counter/pkg/prometheus/metrics"
)

const (
	CountPath  = "/counter/count"
	WindowPath = "/counter/window"
)

type countResponse struct {
	Count uint32 `json:"count"`
	From  uint64 `json:"from"`
	To    uint64 `json:"to"`
	Key   string `json:"key,omitempty"`
}

type windowResponse struct {
	Count  uint32 `json:"count"`
	Now    uint64 `json:"now"`
	Window uint64 `json:"window"`
	Key    string `json:"key,omitempty"`
}

// CountController answers range and trailing-window queries against the
// global ring or a keyed ring.
type CountController struct {
	ring     *counter.Ring
	registry *keyed.Registry
	clk      *clock.Clock
	metrics  metrics.Meter
}

func NewCountController(
	ring *counter.Ring,
	registry *keyed.Registry,
	clk *clock.Clock,
	meter metrics.Meter,
) *CountController {
	return &CountController{ring: ring, registry: registry, clk: clk, metrics: meter}
}

// HandleCount is mounted at GET /counter/count?from=A&to=B[&key=K].
// Degenerate ranges (from >= to) count zero; that is the contract, not an
// error.
func (c *CountController) HandleCount(ctx *fasthttp.RequestCtx) {
	from, ok := queryUint(ctx, "from")
	if !ok {
		serverutils.BadRequest("invalid or missing 'from' query parameter", ctx)
		return
	}
	to, ok := queryUint(ctx, "to")
	if !ok {
		serverutils.BadRequest("invalid or missing 'to' query parameter", ctx)
		return
	}

	key := string(ctx.QueryArgs().Peek("key"))

	var count uint32
	if key != "" {
		count = c.registry.CountIn(key, from, to)
	} else {
		count = c.ring.CountIn(from, to)
	}
	c.metrics.IncQueries("range")
	c.metrics.SetTrackedKeys(c.registry.Len())

	ctx.SetStatusCode(fasthttp.StatusOK)
	_ = json.NewEncoder(ctx).Encode(countResponse{Count: count, From: from, To: to, Key: key})
}

// HandleWindow is mounted at GET /counter/window?[now=T][&key=K]. `now`
// defaults to the coarse clock's current abstract unit.
func (c *CountController) HandleWindow(ctx *fasthttp.RequestCtx) {
	now := c.clk.Now()
	if raw := ctx.QueryArgs().Peek("now"); len(raw) > 0 {
		parsed, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			serverutils.BadRequest("invalid 'now' query parameter", ctx)
			return
		}
		now = parsed
	}

	key := string(ctx.QueryArgs().Peek("key"))

	var count uint32
	if key != "" {
		count = c.registry.CountTrailingWindow(key, now)
	} else {
		count = c.ring.CountTrailingWindow(now)
	}
	c.metrics.IncQueries("window")

	ctx.SetStatusCode(fasthttp.StatusOK)
	_ = json.NewEncoder(ctx).Encode(windowResponse{
		Count:  count,
		Now:    now,
		Window: c.ring.Capacity(),
		Key:    key,
	})
}

// AddRoute attaches the count/window routes to the given router.
func (c *CountController) AddRoute(r *router.Router) {
	r.GET(CountPath, c.HandleCount)
	r.GET(WindowPath, c.HandleWindow)
}

func queryUint(ctx *fasthttp.RequestCtx, name string) (uint64, bool) {
	raw := ctx.QueryArgs().Peek(name)
	if len(raw) == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
