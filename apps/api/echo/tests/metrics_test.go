package tests

import (
	"net/http"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metricValue returns the value of the counter `name` having labels, 0 when not collected yet.
func metricValue(t *testing.T, name string, labels map[string]string) float64 {
	mfs, err := registry.Gather()
	require.NoError(t, err)

	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetrics(t *testing.T) {
	labels := map[string]string{"method": http.MethodGet, "route": "/", "code": "200"}
	before := metricValue(t, "maoni_http_requests_total", labels)

	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, before+1, metricValue(t, "maoni_http_requests_total", labels))
	assert.Equal(t, 0.0, metricValue(t, "maoni_http_requests_total", map[string]string{"route": "/", "code": "500"}))

	cnt, err := promtest.GatherAndCount(registry, "maoni_http_request_duration_seconds")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cnt, 1)

	t.Run("errors are counted with their status code", func(t *testing.T) {
		labels := map[string]string{"method": http.MethodGet, "route": "/v1/users/me", "code": "401"}
		before := metricValue(t, "maoni_http_requests_total", labels)

		req, rec := newRequest(http.MethodGet, "/v1/users/me")
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		assert.Equal(t, before+1, metricValue(t, "maoni_http_requests_total", labels))
	})
}
