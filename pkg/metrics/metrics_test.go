package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amoylab/contentd/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushMetrics(t *testing.T) {
	m := New(config.MetricsConfig{Namespace: "test"})

	m.PushStart()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pushInfl))
	m.PushDone("append", ResultSuccess, time.Now().Add(-time.Second))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.pushInfl))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pushCnt.WithLabelValues("append", ResultSuccess)))

	m.EventPublishFailed("kafka")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.eventErr.WithLabelValues("kafka")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(config.MetricsConfig{Namespace: "test"})

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpReqCnt.WithLabelValues("GET", "/health", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpReqCnt.WithLabelValues("GET", "unmatched", "404")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}
