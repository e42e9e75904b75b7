// Package api serves plugsync's read-only status API.
//
// Routes:
//
//	GET /api/v1/health   broker connection and dependency health
//	GET /api/v1/devices  per-plug state from the running session
//	GET /metrics         Prometheus exposition
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
