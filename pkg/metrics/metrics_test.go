package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSearch("empty", 0)
	m.ObserveEscalation("low_confidence", "medium")
	m.ObserveCompletionRetry()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.ObserveSearch("fused", 0.8)
	m.ObserveSearch("fused", 0.6)
	m.ObserveEscalation("repetition", "high")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RetrievalSearches.WithLabelValues("fused")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Escalations.WithLabelValues("repetition", "high")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "mnp_assistant_escalations_total")
}
