package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/nerrad567/plugsync/internal/bridge"
)

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Connected bool              `json:"connected"`
	Version   string            `json:"version,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// DevicesResponse is the body of GET /api/v1/devices.
type DevicesResponse struct {
	Devices []bridge.DeviceStatus `json:"devices"`
	Count   int                   `json:"count"`
}

// handleHealth reports 200 when the broker session is up and every check
// passes, 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Connected: s.status.Connected(),
		Version:   s.version,
	}
	if !resp.Connected {
		resp.Status = "degraded"
	}

	if len(s.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp.Checks = make(map[string]string, len(names))
		for _, name := range names {
			if err := s.checks[name].HealthCheck(ctx); err != nil {
				s.logger.Warn("health check failed", "check", name, "error", err)
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleListDevices returns the current session's plugs. The list is
// empty while the bridge is reconnecting.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.status.Devices()
	if devices == nil {
		devices = []bridge.DeviceStatus{}
	}
	writeJSON(w, http.StatusOK, DevicesResponse{Devices: devices, Count: len(devices)})
}
