package keepalive

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nerrad567/plugsync/internal/device"
)

// Device is the part of a plug the watchdog needs.
type Device interface {
	Name() string
	Topic() string
	State() device.State
	RequestState(on bool) error
}

// Publisher queues an outbound message without blocking.
type Publisher interface {
	TryPublish(topic, payload string) error
}

// Observer is told about expiries and reactivations. Optional.
type Observer interface {
	KeepAliveExpired(location string)
	KeepAliveReactivated(location string)
}

// Logger defines the logging interface used by the Watchdog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

type monitored struct {
	ka  *KeepAlive
	dev Device
}

// Watchdog drives every KeepAlive of a session from a single ticker.
//
// Entries are added before Run starts and are read-only afterwards.
type Watchdog struct {
	tick      time.Duration
	publisher Publisher
	observer  Observer
	logger    Logger

	entries map[string]*monitored
	order   []string
}

// NewWatchdog creates a watchdog ticking every tick.
func NewWatchdog(tick time.Duration, publisher Publisher, logger Logger) *Watchdog {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Watchdog{
		tick:      tick,
		publisher: publisher,
		logger:    logger,
		entries:   make(map[string]*monitored),
	}
}

// SetObserver registers an observer for expiries and reactivations.
func (w *Watchdog) SetObserver(o Observer) {
	w.observer = o
}

// Add monitors dev with ka. The device name must match the keep-alive location.
func (w *Watchdog) Add(ka *KeepAlive, dev Device) error {
	if dev == nil || dev.Name() != ka.cfg.Location {
		return fmt.Errorf("%w: %s", ErrUnknownLocation, ka.cfg.Location)
	}
	if _, dup := w.entries[ka.cfg.Location]; !dup {
		w.order = append(w.order, ka.cfg.Location)
		sort.Strings(w.order)
	}
	w.entries[ka.cfg.Location] = &monitored{ka: ka, dev: dev}
	return nil
}

// Len returns the number of monitored locations.
func (w *Watchdog) Len() int { return len(w.entries) }

// KeepAlive returns the record for location, or nil.
func (w *Watchdog) KeepAlive(location string) *KeepAlive {
	if m, ok := w.entries[location]; ok {
		return m.ka
	}
	return nil
}

// Run calls Check on every tick until ctx is cancelled. With nothing to
// monitor it returns at once.
func (w *Watchdog) Run(ctx context.Context) error {
	if len(w.entries) == 0 {
		w.logger.Info("no keep alives to monitor")
		return nil
	}

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			w.Check(now)
		}
	}
}

// Check runs one watchdog tick at now.
//
// Per location: a plug that is not on resets the heartbeat count. When the
// heartbeat period max(2*tick, Interval) has elapsed a heartbeat carrying the
// last received value is published and the expiry check is skipped; the
// first heartbeat after activation also restarts the receive clock. When
// Timeout has elapsed since the last signal and at least one heartbeat went
// out, the plug is driven off. An expiry is acted on once per silence.
func (w *Watchdog) Check(now time.Time) {
	minPeriod := 2 * w.tick
	for _, name := range w.order {
		m := w.entries[name]
		if w.checkOne(m, now, minPeriod) {
			w.expire(m, now)
		}
	}
}

// checkOne updates counters and reports whether the keep-alive expired.
func (w *Watchdog) checkOne(m *monitored, now time.Time, minPeriod time.Duration) bool {
	ka := m.ka
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if !m.dev.State().IsOn() {
		ka.sent = 0
		ka.expired = false
		return false
	}

	if now.Sub(ka.lastSent) >= max(minPeriod, ka.cfg.Interval) {
		if ka.cfg.PublishTopic != "" {
			if err := w.publisher.TryPublish(ka.cfg.PublishTopic, ka.lastValue); err != nil {
				w.logger.Warn("dropping keep alive heartbeat", "location", ka.cfg.Location, "error", err)
			}
		}
		ka.lastSent = now
		if ka.sent == 0 {
			ka.lastReceived = now
		}
		ka.sent++
		return false
	}

	return now.Sub(ka.lastReceived) >= ka.cfg.Timeout && ka.sent > 0 && !ka.expired
}

func (w *Watchdog) expire(m *monitored, now time.Time) {
	name := m.ka.cfg.Location
	silent := now.Sub(m.ka.Status().LastReceived)
	w.logger.Info("keep alive expired", "location", name, "silent_for", silent.Round(time.Second).String())

	if err := m.dev.RequestState(false); err != nil {
		w.logger.Warn("device too busy to be turned off", "location", name, "error", err)
		return
	}
	m.ka.mu.Lock()
	m.ka.expired = true
	m.ka.mu.Unlock()

	if err := w.publisher.TryPublish(m.dev.Topic(), device.StateOff.Payload()); err != nil {
		w.logger.Warn("dropping keep alive publish", "location", name, "error", err)
	}
	if w.observer != nil {
		w.observer.KeepAliveExpired(name)
	}
}

// HandleSignal records a liveness signal for location at now.
//
// A non-empty payload becomes the value echoed by later heartbeats. If the
// plug is off (or unknown) it is requested on and "on" is published to its
// primary topic.
//
// Returns:
//   - error: ErrUnknownLocation if location is not monitored
func (w *Watchdog) HandleSignal(location string, now time.Time, payload string) error {
	m, ok := w.entries[location]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLocation, location)
	}

	m.ka.mu.Lock()
	m.ka.lastReceived = now
	m.ka.expired = false
	if payload != "" {
		m.ka.lastValue = payload
	}
	m.ka.mu.Unlock()

	if m.dev.State().IsOn() {
		w.logger.Debug("received keep alive", "location", location)
		return nil
	}

	w.logger.Info("received keep alive, turning device on", "location", location)
	if err := m.dev.RequestState(true); err != nil {
		w.logger.Warn("device too busy to be turned on", "location", location, "error", err)
		return nil
	}
	if err := w.publisher.TryPublish(m.dev.Topic(), device.StateOn.Payload()); err != nil {
		w.logger.Warn("dropping keep alive publish", "location", location, "error", err)
	}
	if w.observer != nil {
		w.observer.KeepAliveReactivated(location)
	}
	return nil
}
