// Package device provides the per-plug proxy used by the bridge.
//
// A Plug caches the last known on/off state of one smart plug, owns its
// bounded command queue and its command throttle, and runs three loops:
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                            Plug                              │
//	│                                                              │
//	│  RunPoller ──────────▶ DeviceState ──────────▶ events queue │
//	│  RunTelemetryPoller ─▶ DeviceTelemetry ──────▶ events queue │
//	│                                                              │
//	│  RequestState ──▶ [commands, cap 4] ──▶ RunDispatcher       │
//	│                                          │ throttle 4/60s    │
//	│                                          ▼                   │
//	│                                  Handle.TurnOn / TurnOff     │
//	└──────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Plug: Device proxy with cached state, queue, throttle and loops
//   - Handle: Capability object for one physical plug (driver supplied)
//   - Resolver: Finds handles by host or by network discovery
//   - Discovery: Per-session memoised discovery cache shared by all plugs
//   - Simulator: In-memory Resolver used by the "simulated" driver and tests
//
// # Handle resolution
//
// Handles are resolved lazily on first use and memoised. A plug configured
// with a host issues a single Resolve call. A plug configured with an alias
// scans the shared discovery cache, then retries up to MaxResolveRetries
// times with the cache reset before each retry. Failure is per attempt: the
// next poll starts over.
//
// # Ownership
//
// Only RunDispatcher calls TurnOn and TurnOff. Everything else requests a
// state through RequestState, which never blocks and reports ErrDeviceBusy
// when the queue is full.
//
// # Usage
//
//	sim := device.NewSimulator()
//	sim.Add("10.0.0.20", "Kitchen")
//
//	plug, err := device.NewPlug(device.Config{
//	    Name:         "kitchen",
//	    Host:         "10.0.0.20",
//	    Topic:        "/plugsync/device/kitchen",
//	    PollInterval: 10 * time.Second,
//	    Resolver:     sim,
//	    Discovery:    device.NewDiscovery(sim),
//	})
//
//	go plug.RunPoller(ctx, events)
//	go plug.RunDispatcher(ctx)
//	plug.RequestState(true)
package device
