package api

import (
	"encoding/json"
	"strconv"
	"sync/atomic"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/Borislavv/invocation-counter/pkg/clock"
	"github.com/Borislavv/invocation-counter/pkg/counter"
	serverutils "github.com/Borislavv/invocation-counter/pkg/http/server/utils"
	"github.com/Borislavv/invocation-counter/pkg/keyed"
	"github.com/Borislavv/invocation-counter/pkg/prometheus/metrics"
)

// RegisterPath accepts one event per request.
const RegisterPath = "/counter/register"

// enabled gates the write surface. The core ring has no error modes; the
// switch exists for operations, not for the data structure.
var enabled atomic.Bool

func init() { enabled.Store(true) }

// SetEnabled flips the write surface on or off (used by the on/off
// controller and by the server at boot).
func SetEnabled(v bool) { enabled.Store(v) }

// IsEnabled reports whether the write surface accepts registrations.
func IsEnabled() bool { return enabled.Load() }

type registerResponse struct {
	Registered bool   `json:"registered"`
	Time       uint64 `json:"time"`
	Key        string `json:"key,omitempty"`
}

// RegisterController records events into the global ring and, when a key is
// supplied, into the keyed registry as well.
type RegisterController struct {
	ring     *counter.Ring
	registry *keyed.Registry
	clk      *clock.Clock
	metrics  metrics.Meter
}

func NewRegisterController(
	ring *counter.Ring,
	registry *keyed.Registry,
	clk *clock.Clock,
	meter metrics.Meter,
) *RegisterController {
	return &RegisterController{ring: ring, registry: registry, clk: clk, metrics: meter}
}

// Handle is mounted at GET /counter/register?time=T[&key=K].
// `time` defaults to the coarse clock's current abstract unit.
func (c *RegisterController) Handle(ctx *fasthttp.RequestCtx) {
	if !enabled.Load() {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		ctx.SetBodyString(`{"error":"counter is disabled"}`)
		return
	}

	t := c.clk.Now()
	if raw := ctx.QueryArgs().Peek("time"); len(raw) > 0 {
		parsed, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			serverutils.BadRequest("invalid 'time' query parameter", ctx)
			return
		}
		t = parsed
	}

	key := string(ctx.QueryArgs().Peek("key"))

	c.ring.Register(t)
	if key != "" {
		c.registry.Register(key, t)
	}
	c.metrics.IncRegistrations("api")

	ctx.SetStatusCode(fasthttp.StatusOK)
	_ = json.NewEncoder(ctx).Encode(registerResponse{Registered: true, Time: t, Key: key})
}

// AddRoute attaches the register route to the given router.
func (c *RegisterController) AddRoute(r *router.Router) {
	r.GET(RegisterPath, c.Handle)
}
