package metrics

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/Borislavv/invocation-counter/pkg/prometheus/metrics/keyword"
)

// Meter is the metrics surface used by the controllers and middlewares.
type Meter interface {
	IncRegistrations(source string)
	IncQueries(kind string)
	SetTrackedKeys(n int64)
	IncTotal(path string, method string, status string)
	NewResponseTimeTimer(path string, method string) *Timer
	FlushResponseTimeTimer(t *Timer)
}

type Metrics struct{}

func New() *Metrics {
	return &Metrics{}
}

var statuses [600]string

func init() {
	for i := 100; i <= 599; i++ {
		statuses[i] = strconv.Itoa(i)
	}
}

// IncRegistrations counts one recorded event; source is "api", "mock" etc.
func (m *Metrics) IncRegistrations(source string) {
	buf := getBuf()
	defer putBuf(buf)

	*buf = append(*buf, keyword.RegistrationsMetricName...)
	*buf = append(*buf, `{source="`...)
	*buf = append(*buf, sanitize(source)...)
	*buf = append(*buf, `"}`...)

	metrics.GetOrCreateCounter(string(*buf)).Inc()
}

// IncQueries counts one count query; kind is "range" or "window".
func (m *Metrics) IncQueries(kind string) {
	buf := getBuf()
	defer putBuf(buf)

	*buf = append(*buf, keyword.QueriesMetricName...)
	*buf = append(*buf, `{kind="`...)
	*buf = append(*buf, sanitize(kind)...)
	*buf = append(*buf, `"}`...)

	metrics.GetOrCreateCounter(string(*buf)).Inc()
}

// SetTrackedKeys publishes the keyed registry's current size.
func (m *Metrics) SetTrackedKeys(n int64) {
	metrics.GetOrCreateGauge(keyword.TrackedKeysMetricName, nil).Set(float64(n))
}

func (m *Metrics) IncTotal(path, method, status string) {
	safePath, safeMethod := sanitize(path), sanitize(method)

	if status != "" {
		statusCode, err := strconv.Atoi(status)
		if err != nil || statusCode < 100 || statusCode >= len(statuses) {
			panic("invalid status code: " + status)
		}
		safeStatus := statuses[statusCode]

		buf := getBuf()
		defer putBuf(buf)

		*buf = append(*buf, keyword.TotalHttpResponsesMetricName...)
		*buf = append(*buf, `{path="`...)
		*buf = append(*buf, safePath...)
		*buf = append(*buf, `",method="`...)
		*buf = append(*buf, safeMethod...)
		*buf = append(*buf, `",status="`...)
		*buf = append(*buf, safeStatus...)
		*buf = append(*buf, `"}`...)

		metrics.GetOrCreateCounter(string(*buf)).Inc()
		return
	}

	buf := getBuf()
	defer putBuf(buf)

	*buf = append(*buf, keyword.TotalHttpRequestsMetricName...)
	*buf = append(*buf, `{path="`...)
	*buf = append(*buf, safePath...)
	*buf = append(*buf, `",method="`...)
	*buf = append(*buf, safeMethod...)
	*buf = append(*buf, `"}`...)

	metrics.GetOrCreateCounter(string(*buf)).Inc()
}

// Timer tracks one response's duration with a pooled, pre-rendered label set.
type Timer struct {
	start time.Time
	buf   *bytes.Buffer
}

var timerPool = sync.Pool{
	New: func() any {
		return &Timer{
			buf: bytes.NewBuffer(make([]byte, 0, 128)),
		}
	},
}

func (m *Metrics) NewResponseTimeTimer(path, method string) *Timer {
	safePath, safeMethod := sanitize(path), sanitize(method)

	t := timerPool.Get().(*Timer)
	t.start = time.Now()
	t.buf.Reset()

	t.buf.WriteString(keyword.HttpResponseTimeMsMetricName)
	t.buf.WriteString(`{path="`)
	t.buf.WriteString(safePath)
	t.buf.WriteString(`",method="`)
	t.buf.WriteString(safeMethod)
	t.buf.WriteString(`"}`)

	return t
}

func (m *Metrics) FlushResponseTimeTimer(t *Timer) {
	durationMs := float64(time.Since(t.start).Milliseconds())
	metrics.GetOrCreateHistogram(t.buf.String()).Update(durationMs)
	timerPool.Put(t)
}

// sanitize escapes quotes and backslashes in label values.
func sanitize(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// ===== buf []byte pooling =====

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 256)
		return &b
	},
}

func getBuf() *[]byte {
	return bufPool.Get().(*[]byte)
}

func putBuf(b *[]byte) {
	*b = (*b)[:0]
	bufPool.Put(b)
}
