package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/plugsync/internal/bridge"
	"github.com/nerrad567/plugsync/internal/infrastructure/config"
	"github.com/nerrad567/plugsync/internal/infrastructure/logging"
	"github.com/nerrad567/plugsync/internal/keepalive"
	"github.com/nerrad567/plugsync/internal/metrics"
)

type fakeStatus struct {
	connected bool
	devices   []bridge.DeviceStatus
}

func (f *fakeStatus) Connected() bool                { return f.connected }
func (f *fakeStatus) Devices() []bridge.DeviceStatus { return f.devices }

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func testServer(t *testing.T, status *fakeStatus, checks map[string]HealthChecker) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	srv, err := New(Deps{
		Config:   config.APIConfig{Enabled: true, Host: "127.0.0.1", Port: 0},
		Logger:   logging.Nop(),
		Status:   status,
		Gatherer: reg,
		Checks:   checks,
		Version:  "test",
	})
	require.NoError(t, err)
	return srv, reg
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{Status: &fakeStatus{}})
	assert.Error(t, err)

	_, err = New(Deps{Logger: logging.Nop()})
	assert.Error(t, err)
}

func TestHealth_Connected(t *testing.T) {
	srv, _ := testServer(t, &fakeStatus{connected: true}, nil)

	rec := get(t, srv.buildRouter(), "/api/v1/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err, "generated request id should be a uuid")

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, HealthResponse{Status: "ok", Connected: true, Version: "test"}, resp)
}

func TestHealth_Disconnected(t *testing.T) {
	srv, _ := testServer(t, &fakeStatus{}, nil)

	rec := get(t, srv.buildRouter(), "/api/v1/health")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"connected":false`)
}

func TestHealth_FailingCheck(t *testing.T) {
	srv, _ := testServer(t, &fakeStatus{connected: true}, map[string]HealthChecker{
		"database": checkFunc(func(context.Context) error { return nil }),
		"influxdb": checkFunc(func(context.Context) error { return errors.New("influxdb: not connected") }),
	})

	rec := get(t, srv.buildRouter(), "/api/v1/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
	assert.Equal(t, "influxdb: not connected", resp.Checks["influxdb"])
}

func TestListDevices(t *testing.T) {
	status := &fakeStatus{
		connected: true,
		devices: []bridge.DeviceStatus{
			{Name: "kitchen", Topic: "/plugsync/device/kitchen", State: "on", Started: true,
				KeepAlive: &keepalive.Status{Location: "kitchen", Sent: 2}},
			{Name: "porch", Topic: "/plugsync/device/porch", State: "unknown", Failures: 3},
		},
	}
	srv, _ := testServer(t, status, nil)

	rec := get(t, srv.buildRouter(), "/api/v1/devices")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DevicesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "kitchen", resp.Devices[0].Name)
	require.NotNil(t, resp.Devices[0].KeepAlive)
	assert.Equal(t, 2, resp.Devices[0].KeepAlive.Sent)
	assert.Equal(t, 3, resp.Devices[1].Failures)
	assert.Nil(t, resp.Devices[1].KeepAlive)
}

func TestListDevices_Reconnecting(t *testing.T) {
	srv, _ := testServer(t, &fakeStatus{}, nil)

	rec := get(t, srv.buildRouter(), "/api/v1/devices")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"devices":[],"count":0}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv, reg := testServer(t, &fakeStatus{connected: true}, nil)
	m := metrics.NewMetrics(reg)
	m.KeepAliveExpired("kitchen")

	rec := get(t, srv.buildRouter(), "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `plugsync_keepalive_expired_total{location="kitchen"} 1`)
}

func TestNotFoundAndMethod(t *testing.T) {
	srv, _ := testServer(t, &fakeStatus{}, nil)
	h := srv.buildRouter()

	rec := get(t, h, "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrCodeNotFound)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices", strings.NewReader("{}"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestIDPassthrough(t *testing.T) {
	srv, _ := testServer(t, &fakeStatus{connected: true}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	assert.Equal(t, "abc123", rec.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, _ := testServer(t, &fakeStatus{}, nil)
	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := get(t, h, "/")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrCodeInternal)
}

func TestServer_StartClose(t *testing.T) {
	srv, _ := testServer(t, &fakeStatus{connected: true}, nil)
	assert.Empty(t, srv.Addr())

	require.NoError(t, srv.Start(context.Background()))
	defer srv.Close() //nolint:errcheck // test cleanup

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	require.NoError(t, srv.Close())
}

func TestServer_CloseBeforeStart(t *testing.T) {
	srv, _ := testServer(t, &fakeStatus{}, nil)
	assert.NoError(t, srv.Close())
}
