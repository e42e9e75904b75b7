package router

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/plugsync/internal/device"
	"github.com/nerrad567/plugsync/internal/event"
	"github.com/nerrad567/plugsync/internal/infrastructure/mqtt"
)

// Device is the part of a plug the router needs.
type Device interface {
	Name() string
	Topic() string
	State() device.State
	RequestState(on bool) error
}

// KeepAliveHandler receives liveness signals.
type KeepAliveHandler interface {
	HandleSignal(location string, now time.Time, payload string) error
}

// Publisher queues an outbound message without blocking.
type Publisher interface {
	TryPublish(topic, payload string) error
}

// Observer is notified after state and telemetry events are published.
// Implementations must not block.
type Observer interface {
	StateChanged(name string, state, old device.State)
	TelemetryReceived(name string, fields []event.Field)
}

// Logger defines the logging interface used by the Router.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config wires a Router.
type Config struct {
	Routes    *Routes
	Devices   map[string]Device
	KeepAlive KeepAliveHandler
	Publisher Publisher
	Observers []Observer
	Logger    Logger
}

// Router is the single consumer of the central event queue.
type Router struct {
	routes    *Routes
	devices   map[string]Device
	keepAlive KeepAliveHandler
	publisher Publisher
	observers []Observer
	logger    Logger
	now       func() time.Time
}

// New creates a Router.
func New(cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Router{
		routes:    cfg.Routes,
		devices:   cfg.Devices,
		keepAlive: cfg.KeepAlive,
		publisher: cfg.Publisher,
		observers: cfg.Observers,
		logger:    logger,
		now:       time.Now,
	}
}

// Run consumes events until ctx is cancelled or events is closed.
func (r *Router) Run(ctx context.Context, events <-chan event.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.Handle(ev)
		}
	}
}

// Handle dispatches one event.
func (r *Router) Handle(ev event.Event) {
	r.logger.Debug("handling event", "kind", ev.Kind())

	switch e := ev.(type) {
	case event.DeviceState:
		r.handleState(e)
	case event.DeviceTelemetry:
		r.handleTelemetry(e)
	case event.BusMessage:
		r.handleBusMessage(e)
	default:
		r.logger.Error("no handler for event", "kind", ev.Kind())
	}
}

func (r *Router) handleState(e event.DeviceState) {
	dev, ok := r.devices[e.Name()]
	if !ok {
		r.logger.Warn("ignoring state event for unknown device", "device", e.Name())
		return
	}

	payload := e.State().Payload()
	r.logger.Info("publishing device state", "device", e.Name(), "topic", dev.Topic(), "state", payload)
	r.publish(dev.Topic(), payload)

	for _, o := range r.observers {
		o.StateChanged(e.Name(), e.State(), e.OldState())
	}
}

func (r *Router) handleTelemetry(e event.DeviceTelemetry) {
	dev, ok := r.devices[e.Name()]
	if !ok {
		r.logger.Warn("ignoring telemetry event for unknown device", "device", e.Name())
		return
	}

	topics := mqtt.Topics{}
	r.logger.Info("publishing device telemetry", "device", e.Name(), "telemetry", e.Telemetry())
	r.publish(topics.Emeter(dev.Topic()), e.Telemetry())

	fields := e.Fields()
	for _, f := range fields {
		r.publish(topics.EmeterField(dev.Topic(), f.Key), f.Value)
	}

	for _, o := range r.observers {
		o.TelemetryReceived(e.Name(), fields)
	}
}

func (r *Router) handleBusMessage(e event.BusMessage) {
	if name, ok := r.routes.KeepAlive(e.Topic()); ok {
		if err := r.keepAlive.HandleSignal(name, r.now(), e.Payload()); err != nil {
			r.logger.Warn("keep alive signal not handled", "topic", e.Topic(), "error", err)
		}
		return
	}

	name, ok := r.routes.Device(e.Topic())
	if !ok {
		r.logger.Warn("unable to map device from topic", "topic", e.Topic())
		return
	}
	dev, ok := r.devices[name]
	if !ok {
		r.logger.Warn("no device for topic", "topic", e.Topic(), "device", name)
		return
	}

	if e.Payload() == "" {
		r.logger.Debug("ignoring empty payload", "topic", e.Topic())
		return
	}

	on, republish, err := device.ParsePayload(e.Payload(), dev.State())
	if err != nil {
		r.logger.Warn("unexpected payload", "topic", e.Topic(), "error", err)
		return
	}
	// The broker echoes the canonical token back as a second, equal request;
	// the dispatcher applies it as a no-op.
	if republish != "" {
		r.publish(e.Topic(), republish)
	}

	wanted := device.StateOf(on)
	if err := dev.RequestState(on); err != nil {
		if errors.Is(err, device.ErrDeviceBusy) {
			r.logger.Warn("device too busy to take request", "device", name, "state", wanted.String())
			return
		}
		r.logger.Error("request failed", "device", name, "error", err)
		return
	}

	r.logger.Info("bus message requests device state", "device", name, "state", wanted.String(), "payload", e.Payload())
}

// publish hands a message to the outbound queue, dropping it if full.
func (r *Router) publish(topic, payload string) {
	if err := r.publisher.TryPublish(topic, payload); err != nil {
		r.logger.Warn("dropping outbound message", "topic", topic, "error", err)
	}
}
