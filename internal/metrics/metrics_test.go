package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/plugsync/internal/device"
	"github.com/nerrad567/plugsync/internal/event"
)

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.SessionStarted()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	assert.Panics(t, func() { NewMetrics(reg) }, "double registration")
}

func TestMetrics_StateChanged(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.StateChanged("kitchen", device.StateOn, device.StateUnknown)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.deviceState.WithLabelValues("kitchen")), 1e-9)

	m.StateChanged("kitchen", device.StateOff, device.StateOn)
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.deviceState.WithLabelValues("kitchen")), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.stateChanges.WithLabelValues("kitchen")), 1e-9)
}

func TestMetrics_TelemetryReceived(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.TelemetryReceived("kitchen", event.ParseTelemetry("power=45.5 mode=eco voltage=230"))

	assert.InDelta(t, 45.5, testutil.ToFloat64(m.telemetry.WithLabelValues("kitchen", "power")), 1e-9)
	assert.InDelta(t, 230.0, testutil.ToFloat64(m.telemetry.WithLabelValues("kitchen", "voltage")), 1e-9)
	assert.Equal(t, 2, testutil.CollectAndCount(m.telemetry))
}

func TestMetrics_BusAndSessions(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SessionStarted()
	m.MessageReceived()
	m.MessagePublished()
	m.MessagePublished()
	m.MessageDropped()
	m.KeepAliveExpired("kitchen")
	m.KeepAliveReactivated("kitchen")

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.connected), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.busMessages.WithLabelValues(directionPublished)), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.busDropped), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.keepAliveExpired.WithLabelValues("kitchen")), 1e-9)

	m.SessionEnded(true)
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.connected), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.connectionsLost), 1e-9)
}

func TestRegisterHistoryDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	var dropped int64
	c := RegisterHistoryDropped(reg, func() int64 { return dropped })

	assert.InDelta(t, 0.0, testutil.ToFloat64(c), 1e-9)
	dropped = 3
	assert.InDelta(t, 3.0, testutil.ToFloat64(c), 1e-9)

	n, err := testutil.GatherAndCount(reg, "plugsync_history_dropped_records_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
