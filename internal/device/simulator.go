package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Simulator is an in-memory Resolver. It backs the "simulated" driver and
// the package tests.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Simulator struct {
	mu    sync.RWMutex
	plugs map[string]*SimulatedPlug // by host

	discoverCalls atomic.Int64
	discoverErr   error
}

// NewSimulator creates an empty simulator.
func NewSimulator() *Simulator {
	return &Simulator{plugs: make(map[string]*SimulatedPlug)}
}

// Add registers a plug at host with the given alias and returns it.
func (s *Simulator) Add(host, alias string) *SimulatedPlug {
	sp := &SimulatedPlug{host: host, alias: alias, voltage: 230}

	s.mu.Lock()
	s.plugs[host] = sp
	s.mu.Unlock()
	return sp
}

// Plug returns the simulated plug at host, or nil.
func (s *Simulator) Plug(host string) *SimulatedPlug {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plugs[host]
}

// SetDiscoverError makes Discover fail with err until cleared with nil.
func (s *Simulator) SetDiscoverError(err error) {
	s.mu.Lock()
	s.discoverErr = err
	s.mu.Unlock()
}

// DiscoverCalls returns how many broadcasts have been made.
func (s *Simulator) DiscoverCalls() int {
	return int(s.discoverCalls.Load())
}

// Resolve implements Resolver.
func (s *Simulator) Resolve(ctx context.Context, host string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.plugs[host]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, host)
	}
	return sp, nil
}

// Discover implements Resolver. Plugs are returned ordered by host.
func (s *Simulator) Discover(ctx context.Context) ([]Handle, error) {
	s.discoverCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.discoverErr != nil {
		return nil, s.discoverErr
	}

	hosts := make([]string, 0, len(s.plugs))
	for host := range s.plugs {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	handles := make([]Handle, 0, len(hosts))
	for _, host := range hosts {
		handles = append(handles, s.plugs[host])
	}
	return handles, nil
}

// SimulatedPlug is a Handle whose relay and meter live in memory.
type SimulatedPlug struct {
	host  string
	alias string

	mu       sync.Mutex
	on       bool
	meter    bool
	watts    float64
	voltage  float64
	totalKWh float64
	failure  error
	turnOns  int
	turnOffs int
}

// Host implements Handle.
func (sp *SimulatedPlug) Host() string { return sp.host }

// Alias implements Handle.
func (sp *SimulatedPlug) Alias() string { return sp.alias }

// SetOn flips the relay as if someone pressed the button on the plug.
func (sp *SimulatedPlug) SetOn(on bool) {
	sp.mu.Lock()
	sp.on = on
	sp.mu.Unlock()
}

// EnableMeter gives the plug an energy meter drawing watts while on.
func (sp *SimulatedPlug) EnableMeter(watts float64) {
	sp.mu.Lock()
	sp.meter = true
	sp.watts = watts
	sp.mu.Unlock()
}

// SetFailure makes every device call fail with err until cleared with nil.
func (sp *SimulatedPlug) SetFailure(err error) {
	sp.mu.Lock()
	sp.failure = err
	sp.mu.Unlock()
}

// Calls returns how many times TurnOn and TurnOff were invoked.
func (sp *SimulatedPlug) Calls() (turnOns, turnOffs int) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.turnOns, sp.turnOffs
}

// IsOn implements Handle.
func (sp *SimulatedPlug) IsOn(ctx context.Context) (bool, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if err := sp.check(ctx); err != nil {
		return false, err
	}
	return sp.on, nil
}

// TurnOn implements Handle.
func (sp *SimulatedPlug) TurnOn(ctx context.Context) error {
	return sp.set(ctx, true)
}

// TurnOff implements Handle.
func (sp *SimulatedPlug) TurnOff(ctx context.Context) error {
	return sp.set(ctx, false)
}

func (sp *SimulatedPlug) set(ctx context.Context, on bool) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if on {
		sp.turnOns++
	} else {
		sp.turnOffs++
	}
	if err := sp.check(ctx); err != nil {
		return err
	}
	sp.on = on
	return nil
}

// HasTelemetry implements Handle.
func (sp *SimulatedPlug) HasTelemetry(ctx context.Context) (bool, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if err := sp.check(ctx); err != nil {
		return false, err
	}
	return sp.meter, nil
}

// Telemetry implements Handle. Each reading accrues energy as if one
// minute had passed at the current draw.
func (sp *SimulatedPlug) Telemetry(ctx context.Context) (Telemetry, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if err := sp.check(ctx); err != nil {
		return Telemetry{}, err
	}
	if !sp.meter {
		return Telemetry{}, ErrNoTelemetry
	}

	var power float64
	if sp.on {
		power = sp.watts
	}
	sp.totalKWh += power / 1000 / 60

	return Telemetry{
		Power:   power,
		Voltage: sp.voltage,
		Current: power / sp.voltage,
		Total:   sp.totalKWh,
	}, nil
}

// check must be called with sp.mu held.
func (sp *SimulatedPlug) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sp.failure != nil {
		return fmt.Errorf("%s: %w", sp.host, sp.failure)
	}
	return nil
}
