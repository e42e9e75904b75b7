package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/plugsync/internal/device"
	"github.com/nerrad567/plugsync/internal/event"
	"github.com/nerrad567/plugsync/internal/infrastructure/config"
	"github.com/nerrad567/plugsync/internal/infrastructure/mqtt"
	"github.com/nerrad567/plugsync/internal/keepalive"
	"github.com/nerrad567/plugsync/internal/router"
)

// EventQueueSize is the capacity of the central event queue.
const EventQueueSize = 256

// SessionConfig holds the dependencies of a Session.
type SessionConfig struct {
	Config   *config.Config
	Routes   *router.Routes
	Bus      Bus
	Resolver device.Resolver

	// Observers are notified of state changes and telemetry.
	Observers []router.Observer

	// KeepAliveObservers are notified of expiries and reactivations.
	KeepAliveObservers []keepalive.Observer

	Instrumentation Instrumentation
	Logger          Logger
}

// Session is one connected run of the bridge. It is used once.
type Session struct {
	cfg    *config.Config
	routes *router.Routes
	bus    Bus

	plugs    []*device.Plug
	watchdog *keepalive.Watchdog
	router   *router.Router
	outbox   *Outbox
	events   chan event.Event

	publisher *publisher
	inst      Instrumentation
	logger    Logger
}

// NewSession builds the plugs, keep-alives and router for one connection.
// Errors wrap ErrInvalidSession.
func NewSession(sc SessionConfig) (*Session, error) {
	if sc.Config == nil || sc.Routes == nil || sc.Resolver == nil {
		return nil, fmt.Errorf("%w: config, routes and resolver are required", ErrInvalidSession)
	}
	logger := sc.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	inst := sc.Instrumentation
	if inst == nil {
		inst = noopInstrumentation{}
	}
	cfg := sc.Config

	s := &Session{
		cfg:    cfg,
		routes: sc.Routes,
		bus:    sc.Bus,
		outbox: NewOutbox(OutboxSize, inst),
		events: make(chan event.Event, EventQueueSize),
		inst:   inst,
		logger: logger,
	}

	discovery := device.NewDiscovery(sc.Resolver)
	devices := make(map[string]router.Device, len(cfg.Locations))
	byName := make(map[string]*device.Plug, len(cfg.Locations))
	for _, name := range cfg.LocationNames() {
		loc := cfg.Locations[name]
		plug, err := device.NewPlug(device.Config{
			Name:              name,
			Host:              loc.Host,
			Alias:             loc.Alias,
			Topic:             cfg.Topic(name),
			PollInterval:      cfg.PollInterval(name),
			TelemetryInterval: cfg.EmeterPollInterval(name),
			Resolver:          sc.Resolver,
			Discovery:         discovery,
			Logger:            logger,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
		}
		s.plugs = append(s.plugs, plug)
		devices[name] = plug
		byName[name] = plug
	}

	s.watchdog = keepalive.NewWatchdog(cfg.KeepAliveTaskInterval(), s.outbox, logger)
	if len(sc.KeepAliveObservers) > 0 {
		s.watchdog.SetObserver(keepAliveFanout(sc.KeepAliveObservers))
	}
	now := time.Now()
	for _, name := range cfg.KeepAliveNames() {
		kc := cfg.KeepAlives[name]
		ka, err := keepalive.NewKeepAlive(keepalive.Config{
			Location:       name,
			Interval:       time.Duration(kc.Interval) * time.Second,
			Timeout:        time.Duration(kc.Timeout) * time.Second,
			PublishTopic:   kc.PublishTopic,
			SubscribeTopic: kc.SubscribeTopic,
		}, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
		}
		plug, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %w: %s", ErrInvalidSession, keepalive.ErrUnknownLocation, name)
		}
		if err := s.watchdog.Add(ka, plug); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
		}
	}

	s.router = router.New(router.Config{
		Routes:    sc.Routes,
		Devices:   devices,
		KeepAlive: s.watchdog,
		Publisher: s.outbox,
		Observers: sc.Observers,
		Logger:    logger,
	})

	s.publisher = &publisher{
		outbox:  s.outbox,
		bus:     sc.Bus,
		limiter: newLimiter(cfg.GetPublishInterval()),
		qos:     byte(cfg.MQTT.QoS),
		retain:  cfg.MQTT.Retain,
		inst:    inst,
		logger:  logger,
	}

	return s, nil
}

// Run starts every loop, subscribes to the routed topics and blocks until
// ctx is cancelled (returns nil) or a loop fails. A lost connection is
// returned wrapping mqtt.ErrConnectionLost.
func (s *Session) Run(ctx context.Context) error {
	if s.bus == nil {
		return fmt.Errorf("%w: no bus", ErrInvalidSession)
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, p := range s.plugs {
		g.Go(func() error { return p.RunPoller(gctx, s.events) })
		g.Go(func() error { return p.RunTelemetryPoller(gctx, s.events) })
		g.Go(func() error { return p.RunDispatcher(gctx) })
	}
	g.Go(func() error { return s.watchdog.Run(gctx) })
	g.Go(func() error { return s.router.Run(gctx, s.events) })
	g.Go(func() error { return s.publisher.run(gctx) })
	g.Go(func() error { return s.watchLost(gctx) })
	g.Go(func() error { return s.subscribe(gctx) })

	s.logger.Info("session started",
		"devices", len(s.plugs),
		"keep_alives", s.watchdog.Len(),
	)

	err := g.Wait()
	if ctx.Err() != nil && !errors.Is(err, mqtt.ErrConnectionLost) {
		return nil
	}
	return err
}

// watchLost turns a dropped connection into a session error.
func (s *Session) watchLost(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case err, ok := <-s.bus.Lost():
		if !ok || err == nil {
			return nil
		}
		return err
	}
}

func (s *Session) subscribe(ctx context.Context) error {
	qos := byte(s.cfg.MQTT.QoS)
	handler := s.receive(ctx)
	for _, topic := range s.routes.Subscriptions() {
		if err := s.bus.Subscribe(topic, qos, handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		s.logger.Debug("subscribed", "topic", topic)
	}
	return nil
}

// receive hands inbound messages to the central queue. It runs on the
// bus's delivery goroutine and blocks while the queue is full.
func (s *Session) receive(ctx context.Context) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		ev, err := event.NewBusMessage(topic, string(payload))
		if err != nil {
			return err
		}
		s.inst.MessageReceived()
		select {
		case s.events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Devices returns a snapshot of every plug in the session, ordered by name.
func (s *Session) Devices() []DeviceStatus {
	out := make([]DeviceStatus, 0, len(s.plugs))
	for _, p := range s.plugs {
		st := DeviceStatus{
			Name:       p.Name(),
			Topic:      p.Topic(),
			State:      p.State().String(),
			Started:    p.Started(),
			Failures:   p.Failures(),
			Resolution: p.Resolution().String(),
		}
		if ka := s.watchdog.KeepAlive(p.Name()); ka != nil {
			status := ka.Status()
			st.KeepAlive = &status
		}
		out = append(out, st)
	}
	return out
}
