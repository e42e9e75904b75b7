package device

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

// Command queue and throttle limits.
const (
	// CommandQueueSize is the capacity of each plug's command queue.
	CommandQueueSize = 4

	// CommandRateLimit commands are allowed per CommandRatePeriod.
	CommandRateLimit  = 4
	CommandRatePeriod = 60 * time.Second

	// StartupBackoff is how long the dispatcher waits for the first
	// successful poll before checking again.
	StartupBackoff = 3 * time.Second
)

// Poll jitter bounds: [jitterMin, jitterMin+jitterSpan).
const (
	jitterMin  = 99 * time.Millisecond
	jitterSpan = 1102 * time.Millisecond
)

// Logger defines the logging interface used by Plug.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config describes one plug.
type Config struct {
	// Name is the location name from configuration.
	Name string

	// Host or Alias identifies the physical plug; at least one is required.
	Host  string
	Alias string

	// Topic is the primary bus topic for the plug.
	Topic string

	// PollInterval is the state poll period (required).
	PollInterval time.Duration

	// TelemetryInterval is the energy-meter poll period. 0 disables it.
	TelemetryInterval time.Duration

	// Resolver locates the plug's Handle (required).
	Resolver Resolver

	// Discovery is the session's shared discovery cache. If nil, the plug
	// gets a private one.
	Discovery *Discovery

	// Logger is optional.
	Logger Logger
}

// Plug is the proxy for one smart plug.
//
// The cached state is read from several goroutines and written by the
// poller and the dispatcher; it is held in an atomic.
type Plug struct {
	name              string
	topic             string
	pollInterval      time.Duration
	telemetryInterval time.Duration

	resolver  Resolver
	discovery *Discovery
	logger    Logger

	state    atomic.Int32
	failures atomic.Int64

	commands chan bool
	throttle *Throttle

	// Overridable in tests.
	jitter         func() time.Duration
	startupBackoff time.Duration

	resolveMu  sync.Mutex
	h          Handle
	resolution atomic.Int32

	infoMu sync.RWMutex
	host   string
	alias  string
}

// NewPlug creates a plug proxy from cfg.
//
// Returns:
//   - *Plug: Proxy in StateUnknown with an empty command queue
//   - error: ErrInvalidConfig if a required field is missing
func NewPlug(cfg Config) (*Plug, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if cfg.Host == "" && cfg.Alias == "" {
		return nil, fmt.Errorf("%w: %s needs a host or an alias", ErrInvalidConfig, cfg.Name)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: %s poll interval must be positive", ErrInvalidConfig, cfg.Name)
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("%w: %s has no resolver", ErrInvalidConfig, cfg.Name)
	}

	discovery := cfg.Discovery
	if discovery == nil {
		discovery = NewDiscovery(cfg.Resolver)
	}

	var logger Logger = noopLogger{}
	if cfg.Logger != nil {
		logger = cfg.Logger
	}

	p := &Plug{
		name:              cfg.Name,
		topic:             cfg.Topic,
		pollInterval:      cfg.PollInterval,
		telemetryInterval: cfg.TelemetryInterval,
		resolver:          cfg.Resolver,
		discovery:         discovery,
		logger:            logger,
		commands:          make(chan bool, CommandQueueSize),
		throttle:          NewThrottle(CommandRateLimit, CommandRatePeriod),
		jitter:            randomJitter,
		startupBackoff:    StartupBackoff,
		host:              cfg.Host,
		alias:             cfg.Alias,
	}
	p.state.Store(int32(StateUnknown))
	return p, nil
}

// Name returns the location name.
func (p *Plug) Name() string { return p.name }

// Topic returns the primary bus topic.
func (p *Plug) Topic() string { return p.topic }

// Host returns the plug's address; empty until resolved for alias plugs.
func (p *Plug) Host() string {
	p.infoMu.RLock()
	defer p.infoMu.RUnlock()
	return p.host
}

// Alias returns the plug's own name; filled in on resolution for host plugs.
func (p *Plug) Alias() string {
	p.infoMu.RLock()
	defer p.infoMu.RUnlock()
	return p.alias
}

// State returns the last cached state.
func (p *Plug) State() State {
	return State(p.state.Load())
}

// Failures returns the number of consecutive failed state polls.
func (p *Plug) Failures() int {
	return int(p.failures.Load())
}

// Started reports whether the handle is resolved and a state is known.
func (p *Plug) Started() bool {
	return p.Resolution() == Resolved && p.State().Known()
}

// RequestState enqueues a desired state without blocking.
//
// Returns:
//   - error: ErrDeviceBusy if the command queue is full
func (p *Plug) RequestState(on bool) error {
	select {
	case p.commands <- on:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrDeviceBusy, p.name)
	}
}

// ApplyPendingRequest waits for one queued command and applies it.
//
// A request equal to the cached state is a no-op. Otherwise the throttle is
// honoured, the device is switched and the cached state updated. A device
// failure is logged and leaves the cached state untouched.
//
// Returns:
//   - error: ctx.Err() on cancellation, or the device error
func (p *Plug) ApplyPendingRequest(ctx context.Context) error {
	var on bool
	select {
	case <-ctx.Done():
		return ctx.Err()
	case on = <-p.commands:
	}

	wanted := StateOf(on)
	if wanted == p.State() {
		p.logger.Debug("state unchanged", "device", p.name, "state", wanted.String())
		return nil
	}

	p.logger.Info("changing state", "device", p.name, "state", wanted.String())

	if err := p.throttle.Wait(ctx); err != nil {
		return err
	}

	h, err := p.handle(ctx)
	if err != nil {
		p.logger.Error("unable to change state", "device", p.name, "state", wanted.String(), "error", err)
		return err
	}

	if on {
		err = h.TurnOn(ctx)
	} else {
		err = h.TurnOff(ctx)
	}
	if err != nil {
		p.logger.Error("unable to change state", "device", p.name, "host", h.Host(), "state", wanted.String(), "error", err)
		return fmt.Errorf("turning %s %s: %w", p.name, wanted, err)
	}

	p.state.Store(int32(wanted))
	return nil
}

// Poll queries the relay state. Any failure yields StateUnknown.
func (p *Plug) Poll(ctx context.Context) State {
	h, err := p.handle(ctx)
	if err != nil {
		p.logger.Error("unable to resolve device", "device", p.name, "error", err)
		return StateUnknown
	}

	on, err := h.IsOn(ctx)
	if err != nil {
		p.logger.Error("unable to fetch state", "device", p.name, "host", h.Host(), "error", err)
		return StateUnknown
	}
	return StateOf(on)
}

// PollTelemetry reads the energy meter.
//
// Returns:
//   - Telemetry: The reading
//   - error: ErrNoTelemetry if the plug has no meter, otherwise a transient error
func (p *Plug) PollTelemetry(ctx context.Context) (Telemetry, error) {
	h, err := p.handle(ctx)
	if err != nil {
		return Telemetry{}, err
	}

	has, err := h.HasTelemetry(ctx)
	if err != nil {
		return Telemetry{}, fmt.Errorf("checking telemetry on %s: %w", p.name, err)
	}
	if !has {
		return Telemetry{}, ErrNoTelemetry
	}

	t, err := h.Telemetry(ctx)
	if err != nil {
		return Telemetry{}, fmt.Errorf("reading telemetry on %s: %w", p.name, err)
	}
	return t, nil
}

// randomJitter spreads poll wake-ups so plugs do not poll in lockstep.
func randomJitter() time.Duration {
	return jitterMin + rand.N(jitterSpan)
}

// sleep waits d or until ctx is done. It reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
