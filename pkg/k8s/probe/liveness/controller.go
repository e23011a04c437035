package liveness

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// Controller serves the liveness state over HTTP.
type Controller struct {
	probe Prober
}

func NewController(probe Prober) *Controller {
	return &Controller{probe: probe}
}

// Handle is mounted at GET /k8s/probe.
func (c *Controller) Handle(ctx *fasthttp.RequestCtx) {
	if c.probe.IsAlive() {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString(`{"alive":true}`)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	ctx.SetBodyString(`{"alive":false}`)
}

// AddRoute attaches the probe route to the given router.
func (c *Controller) AddRoute(r *router.Router) {
	r.GET("/k8s/probe", c.Handle)
}
