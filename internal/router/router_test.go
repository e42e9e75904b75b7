package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/plugsync/internal/device"
	"github.com/nerrad567/plugsync/internal/event"
)

type fakeDevice struct {
	name     string
	topic    string
	state    device.State
	busy     bool
	requests []bool
}

func (d *fakeDevice) Name() string        { return d.name }
func (d *fakeDevice) Topic() string       { return d.topic }
func (d *fakeDevice) State() device.State { return d.state }

func (d *fakeDevice) RequestState(on bool) error {
	if d.busy {
		return device.ErrDeviceBusy
	}
	d.requests = append(d.requests, on)
	return nil
}

type message struct {
	topic   string
	payload string
}

type fakePublisher struct {
	sent []message
	full bool
}

var errOutboxFull = errors.New("outbox full")

func (p *fakePublisher) TryPublish(topic, payload string) error {
	if p.full {
		return errOutboxFull
	}
	p.sent = append(p.sent, message{topic, payload})
	return nil
}

type signal struct {
	location string
	payload  string
}

type fakeKeepAlive struct {
	signals []signal
}

func (k *fakeKeepAlive) HandleSignal(location string, _ time.Time, payload string) error {
	k.signals = append(k.signals, signal{location, payload})
	return nil
}

type recordingObserver struct {
	states    []device.State
	telemetry [][]event.Field
}

func (o *recordingObserver) StateChanged(_ string, state, _ device.State) {
	o.states = append(o.states, state)
}

func (o *recordingObserver) TelemetryReceived(_ string, fields []event.Field) {
	o.telemetry = append(o.telemetry, fields)
}

type harness struct {
	router   *Router
	kitchen  *fakeDevice
	pub      *fakePublisher
	ka       *fakeKeepAlive
	observer *recordingObserver
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	routes, err := BuildRoutes(testConfig())
	require.NoError(t, err)

	h := &harness{
		kitchen:  &fakeDevice{name: "kitchen", topic: "/plugsync/device/kitchen", state: device.StateOff},
		pub:      &fakePublisher{},
		ka:       &fakeKeepAlive{},
		observer: &recordingObserver{},
	}
	h.router = New(Config{
		Routes: routes,
		Devices: map[string]Device{
			"kitchen": h.kitchen,
			"porch":   &fakeDevice{name: "porch", topic: "/outside/porch"},
		},
		KeepAlive: h.ka,
		Publisher: h.pub,
		Observers: []Observer{h.observer},
	})
	return h
}

func busMessage(t *testing.T, topic, payload string) event.BusMessage {
	t.Helper()
	ev, err := event.NewBusMessage(topic, payload)
	require.NoError(t, err)
	return ev
}

func TestRouter_DeviceState(t *testing.T) {
	h := newHarness(t)
	ev, err := event.NewDeviceState("kitchen", device.StateOn, device.StateOff)
	require.NoError(t, err)

	h.router.Handle(ev)

	assert.Equal(t, []message{{"/plugsync/device/kitchen", "on"}}, h.pub.sent)
	assert.Equal(t, []device.State{device.StateOn}, h.observer.states)
}

func TestRouter_DeviceStateUnknownDevice(t *testing.T) {
	h := newHarness(t)
	ev, err := event.NewDeviceState("garage", device.StateOn, device.StateOff)
	require.NoError(t, err)

	h.router.Handle(ev)

	assert.Empty(t, h.pub.sent)
	assert.Empty(t, h.observer.states)
}

func TestRouter_Telemetry(t *testing.T) {
	h := newHarness(t)
	ev, err := event.NewDeviceTelemetry("kitchen", "current=1.2 voltage=120.0 power=45")
	require.NoError(t, err)

	h.router.Handle(ev)

	assert.Equal(t, []message{
		{"/plugsync/device/kitchen/emeter", "current=1.2 voltage=120.0 power=45"},
		{"/plugsync/device/kitchen/emeter/current", "1.2"},
		{"/plugsync/device/kitchen/emeter/voltage", "120.0"},
		{"/plugsync/device/kitchen/emeter/power", "45"},
	}, h.pub.sent)
	require.Len(t, h.observer.telemetry, 1)
	assert.Len(t, h.observer.telemetry[0], 3)
}

func TestRouter_BusMessageCanonical(t *testing.T) {
	h := newHarness(t)

	h.router.Handle(busMessage(t, "/plugsync/device/kitchen", "on"))

	assert.Equal(t, []bool{true}, h.kitchen.requests)
	assert.Empty(t, h.pub.sent, "canonical payload is not republished")
}

func TestRouter_BusMessageSynonym(t *testing.T) {
	h := newHarness(t)

	h.router.Handle(busMessage(t, "/plugsync/device/kitchen", "Yes"))

	assert.Equal(t, []bool{true}, h.kitchen.requests)
	assert.Equal(t, []message{{"/plugsync/device/kitchen", "on"}}, h.pub.sent)
}

func TestRouter_BusMessageSynonymEcho(t *testing.T) {
	h := newHarness(t)

	h.router.Handle(busMessage(t, "/plugsync/device/kitchen", "yes"))
	h.router.Handle(busMessage(t, "/plugsync/device/kitchen", "on"))

	assert.Equal(t, []bool{true, true}, h.kitchen.requests, "echo queues an equal request")
	assert.Len(t, h.pub.sent, 1, "canonical token is not republished again")
}

func TestRouter_BusMessageToggle(t *testing.T) {
	h := newHarness(t)
	h.kitchen.state = device.StateOn

	h.router.Handle(busMessage(t, "/plugsync/device/kitchen", "toggle"))

	assert.Equal(t, []bool{false}, h.kitchen.requests)
	assert.Equal(t, []message{{"/plugsync/device/kitchen", "off"}}, h.pub.sent)
}

func TestRouter_BusMessageIgnored(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"empty payload", "/plugsync/device/kitchen", ""},
		{"unknown payload", "/plugsync/device/kitchen", "maybe"},
		{"unmapped topic", "/somewhere/else", "on"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.router.Handle(busMessage(t, tt.topic, tt.payload))

			assert.Empty(t, h.kitchen.requests)
			assert.Empty(t, h.pub.sent)
			assert.Empty(t, h.ka.signals)
		})
	}
}

func TestRouter_BusMessageBusyDevice(t *testing.T) {
	h := newHarness(t)
	h.kitchen.busy = true

	assert.NotPanics(t, func() {
		h.router.Handle(busMessage(t, "/plugsync/device/kitchen", "off"))
	})
	assert.Empty(t, h.kitchen.requests)
}

func TestRouter_KeepAliveSignal(t *testing.T) {
	h := newHarness(t)

	h.router.Handle(busMessage(t, "/pong", "alive"))
	h.router.Handle(busMessage(t, "/pong", ""))

	assert.Equal(t, []signal{{"kitchen", "alive"}, {"kitchen", ""}}, h.ka.signals)
	assert.Empty(t, h.kitchen.requests)
}

func TestRouter_OutboxFullDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	h.pub.full = true
	ev, err := event.NewDeviceState("kitchen", device.StateOn, device.StateOff)
	require.NoError(t, err)

	h.router.Handle(ev)

	assert.Empty(t, h.pub.sent)
	assert.Equal(t, []device.State{device.StateOn}, h.observer.states)
}

func TestRouter_Run(t *testing.T) {
	h := newHarness(t)
	events := make(chan event.Event, 2)
	events <- busMessage(t, "/plugsync/device/kitchen", "on")
	close(events)

	require.NoError(t, h.router.Run(context.Background(), events))
	assert.Equal(t, []bool{true}, h.kitchen.requests)
}
