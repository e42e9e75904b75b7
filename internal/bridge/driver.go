package bridge

import (
	"fmt"

	"github.com/nerrad567/plugsync/internal/device"
	"github.com/nerrad567/plugsync/internal/infrastructure/config"
)

// simulatedWatts is the draw of a simulated plug with a meter.
const simulatedWatts = 40.0

// NewResolver returns the device resolver for cfg.Driver.
//
// The simulated driver creates one in-memory plug per location, reachable
// by the location's host and alias. Plugs get a meter when telemetry
// polling is enabled for them. The resolver is built once and outlives
// sessions, so simulated relays keep their state across reconnects.
func NewResolver(cfg *config.Config) (device.Resolver, error) {
	switch cfg.Driver {
	case config.DefaultDriver, "":
		sim := device.NewSimulator()
		for _, name := range cfg.LocationNames() {
			loc := cfg.Locations[name]
			host := loc.Host
			if host == "" {
				host = "sim-" + name
			}
			alias := loc.Alias
			if alias == "" {
				alias = name
			}
			plug := sim.Add(host, alias)
			if cfg.EmeterPollInterval(name) > 0 {
				plug.EnableMeter(simulatedWatts)
			}
		}
		return sim, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
