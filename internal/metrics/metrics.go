// Package metrics exposes plugsync's Prometheus collectors.
//
// Metrics implements the router and keep-alive observer interfaces and the
// bridge instrumentation hooks, so a single value wires every component.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/plugsync/internal/device"
	"github.com/nerrad567/plugsync/internal/event"
)

const namespace = "plugsync"

// Bus message directions.
const (
	directionReceived  = "received"
	directionPublished = "published"
)

// Metrics holds every collector. All methods are safe for concurrent use.
type Metrics struct {
	deviceState      *prometheus.GaugeVec
	stateChanges     *prometheus.CounterVec
	telemetry        *prometheus.GaugeVec
	keepAliveExpired *prometheus.CounterVec
	keepAliveRevived *prometheus.CounterVec
	busMessages      *prometheus.CounterVec
	busDropped       prometheus.Counter
	sessions         prometheus.Counter
	connectionsLost  prometheus.Counter
	connected        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		deviceState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "device_state",
				Help:      "Last observed plug state: 1=on, 0=off.",
			},
			[]string{"device"},
		),
		stateChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "device_state_changes_total",
				Help:      "State changes observed by the pollers.",
			},
			[]string{"device"},
		),
		telemetry: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "device_telemetry",
				Help:      "Last energy-meter reading per field.",
			},
			[]string{"device", "field"},
		),
		keepAliveExpired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "keepalive_expired_total",
				Help:      "Keep-alive expiries that turned a plug off.",
			},
			[]string{"location"},
		),
		keepAliveRevived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "keepalive_reactivated_total",
				Help:      "Keep-alive signals that turned a plug back on.",
			},
			[]string{"location"},
		),
		busMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bus_messages_total",
				Help:      "MQTT messages by direction.",
			},
			[]string{"direction"},
		),
		busDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_messages_dropped_total",
			Help:      "Outbound messages dropped because the queue was full or the publish failed.",
		}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Bridge sessions started.",
		}),
		connectionsLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_lost_total",
			Help:      "Broker connections lost.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bus_connected",
			Help:      "Broker connection: 1=connected, 0=not connected.",
		}),
	}

	reg.MustRegister(
		m.deviceState,
		m.stateChanges,
		m.telemetry,
		m.keepAliveExpired,
		m.keepAliveRevived,
		m.busMessages,
		m.busDropped,
		m.sessions,
		m.connectionsLost,
		m.connected,
	)
	return m
}

// StateChanged implements router.Observer.
func (m *Metrics) StateChanged(name string, state, _ device.State) {
	v := 0.0
	if state.IsOn() {
		v = 1
	}
	m.deviceState.WithLabelValues(name).Set(v)
	m.stateChanges.WithLabelValues(name).Inc()
}

// TelemetryReceived implements router.Observer. Non-numeric fields are skipped.
func (m *Metrics) TelemetryReceived(name string, fields []event.Field) {
	for _, f := range fields {
		if v, ok := f.Float(); ok {
			m.telemetry.WithLabelValues(name, f.Key).Set(v)
		}
	}
}

// KeepAliveExpired implements keepalive.Observer.
func (m *Metrics) KeepAliveExpired(location string) {
	m.keepAliveExpired.WithLabelValues(location).Inc()
}

// KeepAliveReactivated implements keepalive.Observer.
func (m *Metrics) KeepAliveReactivated(location string) {
	m.keepAliveRevived.WithLabelValues(location).Inc()
}

// MessageReceived counts an inbound bus message.
func (m *Metrics) MessageReceived() {
	m.busMessages.WithLabelValues(directionReceived).Inc()
}

// MessagePublished counts a successful publish.
func (m *Metrics) MessagePublished() {
	m.busMessages.WithLabelValues(directionPublished).Inc()
}

// MessageDropped counts an outbound message that never reached the broker.
func (m *Metrics) MessageDropped() {
	m.busDropped.Inc()
}

// SessionStarted counts a session and marks the bus connected.
func (m *Metrics) SessionStarted() {
	m.sessions.Inc()
	m.connected.Set(1)
}

// SessionEnded marks the bus disconnected, counting a loss if lost is set.
func (m *Metrics) SessionEnded(lost bool) {
	m.connected.Set(0)
	if lost {
		m.connectionsLost.Inc()
	}
}

// RegisterHistoryDropped exposes the history recorder's drop count, read
// from dropped at scrape time.
func RegisterHistoryDropped(reg prometheus.Registerer, dropped func() int64) prometheus.CounterFunc {
	c := prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "dropped_records_total",
			Help:      "State history records dropped because the write queue was full.",
		},
		func() float64 { return float64(dropped()) },
	)
	reg.MustRegister(c)
	return c
}
