package bridge

import (
	"context"

	"github.com/nerrad567/plugsync/internal/infrastructure/config"
	"github.com/nerrad567/plugsync/internal/infrastructure/mqtt"
	"github.com/nerrad567/plugsync/internal/keepalive"
)

// Bus is the broker connection a Session runs on. *mqtt.Client satisfies it.
type Bus interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Lost() <-chan error
	HealthCheck(ctx context.Context) error
	Close() error
}

// Dialer opens a new Bus.
type Dialer func(cfg config.MQTTConfig) (Bus, error)

// MQTTDialer returns a Dialer that connects to the configured broker and
// routes the client's own warnings to logger.
func MQTTDialer(logger mqtt.Logger) Dialer {
	return func(cfg config.MQTTConfig) (Bus, error) {
		client, err := mqtt.Connect(cfg)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			client.SetLogger(logger)
		}
		return client, nil
	}
}

// Instrumentation receives bus and session counters.
type Instrumentation interface {
	MessageReceived()
	MessagePublished()
	MessageDropped()
	SessionStarted()
	SessionEnded(lost bool)
}

type noopInstrumentation struct{}

func (noopInstrumentation) MessageReceived()  {}
func (noopInstrumentation) MessagePublished() {}
func (noopInstrumentation) MessageDropped()   {}
func (noopInstrumentation) SessionStarted()   {}
func (noopInstrumentation) SessionEnded(bool) {}

// keepAliveFanout forwards keep-alive notifications to several observers.
type keepAliveFanout []keepalive.Observer

func (f keepAliveFanout) KeepAliveExpired(location string) {
	for _, o := range f {
		o.KeepAliveExpired(location)
	}
}

func (f keepAliveFanout) KeepAliveReactivated(location string) {
	for _, o := range f {
		o.KeepAliveReactivated(location)
	}
}

// Logger defines the logging interface used by the bridge and passed on to
// the components it builds.
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
