package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/amoylab/contentd/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Push results used as the "result" label
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultBusy     = "busy"
	ResultRejected = "rejected"
	ResultTimeout  = "timeout"
)

type Metrics struct {
	registry   *prometheus.Registry
	namespace  string
	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec
	pushCnt    *prometheus.CounterVec
	pushDur    *prometheus.HistogramVec
	pushInfl   prometheus.Gauge
	eventErr   *prometheus.CounterVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	pushCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "note_pushes_total"}, []string{"mode", "result"})
	pushDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "note_push_duration_seconds", Buckets: buckets}, []string{"mode", "result"})
	pushInfl := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "note_pushes_inflight"})
	eventErr := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "event_publish_errors_total"}, []string{"publisher"})
	r.MustRegister(pushCnt, pushDur, pushInfl, eventErr)

	return &Metrics{
		registry:   r,
		namespace:  ns,
		httpReqCnt: httpReqCnt,
		httpDur:    httpDur,
		httpInfl:   httpInfl,
		pushCnt:    pushCnt,
		pushDur:    pushDur,
		pushInfl:   pushInfl,
		eventErr:   eventErr,
	}
}

func (m *Metrics) PushStart() {
	m.pushInfl.Inc()
}

func (m *Metrics) PushDone(mode, result string, since time.Time) {
	m.pushCnt.WithLabelValues(mode, result).Inc()
	m.pushDur.WithLabelValues(mode, result).Observe(time.Since(since).Seconds())
	m.pushInfl.Dec()
}

func (m *Metrics) EventPublishFailed(publisher string) {
	m.eventErr.WithLabelValues(publisher).Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
