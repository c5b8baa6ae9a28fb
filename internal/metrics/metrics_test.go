package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/staffgate/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveEvent("applicant", "callback", "ok", 10*time.Millisecond)
	m.ObserveEvent("", "text", "unrecognized", time.Millisecond)
	m.Denied("role")
	m.Failed("storage_write")
	m.Finalized("accepted")
	m.Inconsistent()
	m.Inconsistent()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("applicant", "callback", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("none", "text", "unrecognized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Denials.WithLabelValues("role")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("storage_write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Finalizations.WithLabelValues("accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Inconsistencies))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveEvent("applicant", "text", "ok", time.Second)
		m.Denied("unknown")
		m.Failed("x")
		m.Finalized("rejected")
		m.Inconsistent()
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	m := metrics.New(nil)
	m.Finalized("rejected")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `staffgate_finalizations_total{decision="rejected"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
