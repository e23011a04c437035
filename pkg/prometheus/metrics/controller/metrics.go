package controller

import (
	"github.com/VictoriaMetrics/metrics"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// PrometheusMetrics exposes the process metric set in Prometheus text format.
type PrometheusMetrics struct{}

func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{}
}

// Handle is mounted at GET /metrics.
func (c *PrometheusMetrics) Handle(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("text/plain; version=0.0.4; charset=utf-8")
	metrics.WritePrometheus(ctx, true)
}

// AddRoute attaches the metrics route to the given router.
func (c *PrometheusMetrics) AddRoute(r *router.Router) {
	r.GET("/metrics", c.Handle)
}
