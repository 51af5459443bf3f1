package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mikrotik-exporter/internal/config"
	"mikrotik-exporter/internal/pool"
	"mikrotik-exporter/internal/roserr"
	"mikrotik-exporter/internal/routeros"
)

func dialAlwaysFails(_, _, _ string, _ time.Duration) (*routeros.Connection, error) {
	return nil, &roserr.NetworkError{Op: "dial"}
}

func TestHealthHandlerHealthy(t *testing.T) {
	p := pool.New(dialAlwaysFails)
	routers := []config.RouterSpec{{Name: "r1"}, {Name: "r2"}}

	rr := httptest.NewRecorder()
	HealthHandler(routers, p)(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "healthy", body.Status)
	require.Len(t, body.Routers, 2)
}

func TestHealthHandlerUnhealthy(t *testing.T) {
	p := pool.New(dialAlwaysFails)
	routers := []config.RouterSpec{{Name: "r1"}}

	_ = p.WithConnection("r1", "addr", "u", "p", time.Second, func(*routeros.Connection) error { return nil })
	p.ReportFailure("r1")

	rr := httptest.NewRecorder()
	HealthHandler(routers, p)(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "unhealthy", body.Status)
	require.Equal(t, 1, body.Routers[0].ConsecutiveErrors)
}
