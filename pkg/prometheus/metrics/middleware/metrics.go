package middleware

import (
	"strconv"
	"unsafe"

	"github.com/valyala/fasthttp"

	"github.com/Borislavv/invocation-counter/pkg/prometheus/metrics"
)

// PrometheusMetrics times every request and counts totals/statuses per
// path+method.
type PrometheusMetrics struct {
	metrics metrics.Meter
}

func NewPrometheusMetrics(meter metrics.Meter) *PrometheusMetrics {
	return &PrometheusMetrics{metrics: meter}
}

func (m *PrometheusMetrics) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		pth := ctx.Path()
		path := *(*string)(unsafe.Pointer(&pth))

		mthd := ctx.Method()
		method := *(*string)(unsafe.Pointer(&mthd))

		timer := m.metrics.NewResponseTimeTimer(path, method)

		m.metrics.IncTotal(path, method, "")

		next(ctx)

		m.metrics.IncTotal(path, method, strconv.Itoa(ctx.Response.StatusCode()))

		m.metrics.FlushResponseTimeTimer(timer)
	}
}
