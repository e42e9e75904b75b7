package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Handle is the capability object for one physical plug.
//
// Implementations perform device I/O and must be safe for concurrent use;
// the pollers and the dispatcher call it from different goroutines.
type Handle interface {
	// Host returns the network address of the plug.
	Host() string

	// Alias returns the name configured on the plug itself.
	Alias() string

	// IsOn refreshes and returns the relay state.
	IsOn(ctx context.Context) (bool, error)

	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error

	// HasTelemetry reports whether the plug carries an energy meter.
	HasTelemetry(ctx context.Context) (bool, error)

	// Telemetry returns a real-time energy-meter reading.
	Telemetry(ctx context.Context) (Telemetry, error)
}

// Resolver locates plugs on the network.
type Resolver interface {
	// Resolve returns the handle for the plug at host.
	Resolve(ctx context.Context, host string) (Handle, error)

	// Discover broadcasts for plugs and returns every one that answered.
	Discover(ctx context.Context) ([]Handle, error)
}

// Telemetry is one energy-meter reading.
type Telemetry struct {
	Power   float64 // W
	Voltage float64 // V
	Current float64 // A
	Total   float64 // kWh
}

// String renders the reading in the key=value form published on the bus.
func (t Telemetry) String() string {
	var b strings.Builder
	b.WriteString("<EmeterStatus")
	for _, kv := range []struct {
		key string
		val float64
	}{
		{"power", t.Power},
		{"voltage", t.Voltage},
		{"current", t.Current},
		{"total", t.Total},
	} {
		fmt.Fprintf(&b, " %s=%s", kv.key, strconv.FormatFloat(kv.val, 'f', -1, 64))
	}
	b.WriteString(">")
	return b.String()
}
