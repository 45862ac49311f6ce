package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Authz("messages", "update", "denied")
	m.Authz("messages", "update", "denied")
	m.Authz("messages", "get", "owner")
	require.Equal(t, 2.0, testutil.ToFloat64(m.authz.WithLabelValues("messages", "update", "denied")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.authz.WithLabelValues("messages", "get", "owner")))

	done := m.RequestStarted()
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpInFlight))
	done()
	require.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))

	m.ObserveRequest("GET", "", 404, time.Millisecond)
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))

	m.SetHealthy(true)
	require.Equal(t, 1.0, testutil.ToFloat64(m.health))
	m.SetHealthy(false)
	require.Equal(t, 0.0, testutil.ToFloat64(m.health))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.AuthFailure("invalid_token")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `universal_api_auth_failures_total{reason="invalid_token"} 1`), body)
	require.Contains(t, body, "go_goroutines")
}
