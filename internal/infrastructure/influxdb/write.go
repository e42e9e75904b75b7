package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/plugsync/internal/device"
	"github.com/nerrad567/plugsync/internal/event"
)

// Measurement names.
const (
	MeasurementTelemetry = "plug_telemetry"
	MeasurementState     = "plug_state"
)

// WriteTelemetry records the numeric fields of one meter reading.
// Non-numeric fields are skipped; a reading with none is not written.
//
// Example:
//
//	fields := event.ParseTelemetry("<EmeterStatus power=40 voltage=230 current=0.17 total=1.2>")
//	client.WriteTelemetry("kitchen", fields, time.Now())
func (c *Client) WriteTelemetry(name string, fields []event.Field, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	values := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if v, ok := f.Float(); ok {
			values[f.Key] = v
		}
	}
	if len(values) == 0 {
		return
	}

	point := write.NewPoint(
		MeasurementTelemetry,
		map[string]string{"device": name},
		values,
		ts,
	)
	c.writeAPI.WritePoint(point)
}

// WriteState records a relay state change.
func (c *Client) WriteState(name string, state, old device.State, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	var on int64
	if state.IsOn() {
		on = 1
	}

	point := write.NewPoint(
		MeasurementState,
		map[string]string{"device": name},
		map[string]interface{}{
			"on":        on,
			"state":     state.String(),
			"old_state": old.String(),
		},
		ts,
	)
	c.writeAPI.WritePoint(point)
}

// StateChanged implements router.Observer.
func (c *Client) StateChanged(name string, state, old device.State) {
	c.WriteState(name, state, old, time.Now())
}

// TelemetryReceived implements router.Observer.
func (c *Client) TelemetryReceived(name string, fields []event.Field) {
	c.WriteTelemetry(name, fields, time.Now())
}
