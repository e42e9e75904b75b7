package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/plugsync/internal/device"
	"github.com/nerrad567/plugsync/internal/infrastructure/config"
	"github.com/nerrad567/plugsync/internal/infrastructure/mqtt"
	"github.com/nerrad567/plugsync/internal/keepalive"
	"github.com/nerrad567/plugsync/internal/router"
)

// SupervisorConfig holds the dependencies of a Supervisor.
type SupervisorConfig struct {
	Config *config.Config

	// Dial opens the bus for each session. Defaults to MQTTDialer(Logger).
	Dial Dialer

	// Resolver finds devices. Defaults to NewResolver(Config).
	Resolver device.Resolver

	Observers          []router.Observer
	KeepAliveObservers []keepalive.Observer
	Instrumentation    Instrumentation
	Logger             Logger
}

// Supervisor runs sessions back to back, reconnecting after bus failures.
//
// Thread Safety:
//   - Connected, HealthCheck and Devices may be called from any goroutine.
type Supervisor struct {
	cfg       *config.Config
	routes    *router.Routes
	dial      Dialer
	resolver  device.Resolver
	observers []router.Observer
	kaObs     []keepalive.Observer
	inst      Instrumentation
	logger    Logger

	reconnectInterval time.Duration

	mu        sync.RWMutex
	current   *Session
	connected atomic.Bool
}

// NewSupervisor validates the routing tables and session configuration
// and prepares the resolver. A topic conflict or an invalid device or
// keep-alive is returned here, before any bus I/O.
func NewSupervisor(sc SupervisorConfig) (*Supervisor, error) {
	if sc.Config == nil {
		return nil, fmt.Errorf("%w: config is required", ErrInvalidSession)
	}
	routes, err := router.BuildRoutes(sc.Config)
	if err != nil {
		return nil, err
	}

	resolver := sc.Resolver
	if resolver == nil {
		resolver, err = NewResolver(sc.Config)
		if err != nil {
			return nil, err
		}
	}

	logger := sc.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	dial := sc.Dial
	if dial == nil {
		dial = MQTTDialer(logger)
	}
	inst := sc.Instrumentation
	if inst == nil {
		inst = noopInstrumentation{}
	}

	sup := &Supervisor{
		cfg:               sc.Config,
		routes:            routes,
		dial:              dial,
		resolver:          resolver,
		observers:         sc.Observers,
		kaObs:             sc.KeepAliveObservers,
		inst:              inst,
		logger:            logger,
		reconnectInterval: sc.Config.GetReconnectInterval(),
	}

	// Build one session without a bus so device and keep-alive
	// configuration errors surface before the first connect.
	if _, err := NewSession(sup.sessionConfig(nil)); err != nil {
		return nil, err
	}
	return sup, nil
}

// Routes returns the routing tables built at construction.
func (s *Supervisor) Routes() *router.Routes { return s.routes }

// Run blocks until ctx is cancelled (returns nil) or a session fails with
// a configuration error (returned). Any other session error is logged and
// followed by a fresh session after the reconnect interval.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		err := s.runSession(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrInvalidSession) {
			return err
		}

		s.logger.Warn("session ended, reconnecting",
			"error", err,
			"retry_in", s.reconnectInterval,
		)

		timer := time.NewTimer(s.reconnectInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Supervisor) sessionConfig(bus Bus) SessionConfig {
	return SessionConfig{
		Config:             s.cfg,
		Routes:             s.routes,
		Bus:                bus,
		Resolver:           s.resolver,
		Observers:          s.observers,
		KeepAliveObservers: s.kaObs,
		Instrumentation:    s.inst,
		Logger:             s.logger,
	}
}

func (s *Supervisor) runSession(ctx context.Context) (err error) {
	bus, err := s.dial(s.cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer func() {
		if closeErr := bus.Close(); closeErr != nil {
			s.logger.Error("error closing bus", "error", closeErr)
		}
	}()
	s.logger.Info("broker connected",
		"broker", fmt.Sprintf("%s:%d", s.cfg.MQTT.Broker.Host, s.cfg.MQTT.Broker.Port),
		"client_id", s.cfg.MQTT.Broker.ClientID,
	)

	session, err := NewSession(s.sessionConfig(bus))
	if err != nil {
		return err
	}

	s.setSession(session)
	s.inst.SessionStarted()
	defer func() {
		s.setSession(nil)
		s.inst.SessionEnded(errors.Is(err, mqtt.ErrConnectionLost))
	}()

	return session.Run(ctx)
}

func (s *Supervisor) setSession(session *Session) {
	s.mu.Lock()
	s.current = session
	s.mu.Unlock()
	s.connected.Store(session != nil)
}

// Connected reports whether a session is running on a live connection.
func (s *Supervisor) Connected() bool {
	return s.connected.Load()
}

// HealthCheck checks the current session's broker connection.
//
// Returns:
//   - error: ErrNoSession while reconnecting, or the bus's own check result
func (s *Supervisor) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	session := s.current
	s.mu.RUnlock()

	if session == nil || session.bus == nil {
		return ErrNoSession
	}
	return session.bus.HealthCheck(ctx)
}

// Devices returns the current session's device snapshot, or an empty
// slice while reconnecting.
func (s *Supervisor) Devices() []DeviceStatus {
	s.mu.RLock()
	session := s.current
	s.mu.RUnlock()

	if session == nil {
		return []DeviceStatus{}
	}
	return session.Devices()
}
