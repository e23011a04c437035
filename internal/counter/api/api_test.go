package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/Borislavv/invocation-counter/internal/counter/config"
	"github.com/Borislavv/invocation-counter/pkg/clock"
	"github.com/Borislavv/invocation-counter/pkg/counter"
	"github.com/Borislavv/invocation-counter/pkg/keyed"
	"github.com/Borislavv/invocation-counter/pkg/prometheus/metrics"
)

type fixture struct {
	ring     *counter.Ring
	registry *keyed.Registry
	clk      *clock.Clock
	stop     func()
	register *RegisterController
	count    *CountController
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	// 8 slots x 16 units = 128-unit window
	ring, err := counter.New(3, 4)
	require.NoError(t, err)

	registry, err := keyed.NewRegistry(2, 3, 4, 0)
	require.NoError(t, err)

	clk, stop := clock.Start(time.Millisecond, time.Millisecond)
	t.Cleanup(stop)

	meter := metrics.New()
	f := &fixture{
		ring:     ring,
		registry: registry,
		clk:      clk,
		stop:     stop,
		register: NewRegisterController(ring, registry, clk, meter),
		count:    NewCountController(ring, registry, clk, meter),
	}

	SetEnabled(true)
	return f
}

func doGet(handler fasthttp.RequestHandler, uri string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI(uri)
	handler(ctx)
	return ctx
}

func TestRegisterAndCount(t *testing.T) {
	f := newFixture(t)

	for _, ts := range []string{"0", "1", "2", "3"} {
		ctx := doGet(f.register.Handle, "/counter/register?time="+ts)
		assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	}

	ctx := doGet(f.count.HandleCount, "/counter/count?from=0&to=16")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp struct {
		Count uint32 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, uint32(4), resp.Count)
}

func TestRegister_DefaultsToClockTime(t *testing.T) {
	f := newFixture(t)

	ctx := doGet(f.register.Handle, "/counter/register")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp struct {
		Registered bool   `json:"registered"`
		Time       uint64 `json:"time"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.True(t, resp.Registered)
	assert.Positive(t, resp.Time)
}

func TestRegister_InvalidTime(t *testing.T) {
	f := newFixture(t)

	ctx := doGet(f.register.Handle, "/counter/register?time=abc")
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestRegister_DisabledReturns503(t *testing.T) {
	f := newFixture(t)

	SetEnabled(false)
	defer SetEnabled(true)

	ctx := doGet(f.register.Handle, "/counter/register?time=1")
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())
	assert.Equal(t, uint32(0), f.ring.CountIn(0, 16))
}

func TestRegister_KeyedCounting(t *testing.T) {
	f := newFixture(t)

	doGet(f.register.Handle, "/counter/register?time=5&key=users")
	doGet(f.register.Handle, "/counter/register?time=6&key=users")
	doGet(f.register.Handle, "/counter/register?time=5&key=orders")

	ctx := doGet(f.count.HandleCount, "/counter/count?from=0&to=16&key=users")
	var resp struct {
		Count uint32 `json:"count"`
		Key   string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, uint32(2), resp.Count)
	assert.Equal(t, "users", resp.Key)

	// keyed registrations also land in the global ring
	assert.Equal(t, uint32(3), f.ring.CountIn(0, 16))
}

func TestCount_DegenerateRangeIsZeroNotError(t *testing.T) {
	f := newFixture(t)

	doGet(f.register.Handle, "/counter/register?time=1")

	ctx := doGet(f.count.HandleCount, "/counter/count?from=10&to=10")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp struct {
		Count uint32 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, uint32(0), resp.Count)
}

func TestCount_MalformedParams(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, fasthttp.StatusBadRequest,
		doGet(f.count.HandleCount, "/counter/count?from=x&to=10").Response.StatusCode())
	assert.Equal(t, fasthttp.StatusBadRequest,
		doGet(f.count.HandleCount, "/counter/count?from=1").Response.StatusCode())
}

func TestWindow(t *testing.T) {
	f := newFixture(t)

	doGet(f.register.Handle, "/counter/register?time=10")
	doGet(f.register.Handle, "/counter/register?time=25")

	ctx := doGet(f.count.HandleWindow, "/counter/window?now=25")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp struct {
		Count  uint32 `json:"count"`
		Window uint64 `json:"window"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, uint32(2), resp.Count)
	assert.Equal(t, uint64(128), resp.Window)
}

func TestOnOff(t *testing.T) {
	_ = newFixture(t)
	c := NewOnOffController()

	doGet(c.Off, "/counter/off")
	assert.False(t, IsEnabled())

	doGet(c.On, "/counter/on")
	assert.True(t, IsEnabled())
}

func TestReset_TokenHandshake(t *testing.T) {
	f := newFixture(t)
	cfg := &config.Config{}
	c := NewResetController(cfg, f.ring, f.registry)

	doGet(f.register.Handle, "/counter/register?time=1&key=a")
	require.Equal(t, uint32(1), f.ring.CountIn(0, 16))

	// without a token: handshake, nothing reset
	ctx := doGet(c.HandleReset, "/counter/reset")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &tok))
	require.NotEmpty(t, tok.Token)
	assert.Equal(t, uint32(1), f.ring.CountIn(0, 16))

	// wrong token: forbidden
	ctx = doGet(c.HandleReset, "/counter/reset?token=bogus")
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	// a failed validation burns the token; fetch a fresh one
	ctx = doGet(c.HandleReset, "/counter/reset")
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &tok))

	ctx = doGet(c.HandleReset, "/counter/reset?token="+tok.Token)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, uint32(0), f.ring.CountIn(0, 16))
	assert.Equal(t, int64(0), f.registry.Len())
}
