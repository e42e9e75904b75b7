// Package influxdb records plug telemetry and state changes in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Writes go through
// the non-blocking, batched write API, so the router can call the observer
// methods without waiting on the network.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetOnError(func(err error) { log.Error("influxdb write failed", "error", err) })
//
// # Schema
//
//	plug_telemetry,device=<name> power=..,voltage=..,current=..,total=..
//	plug_state,device=<name>     on=0|1i,state="on",old_state="off"
//
// Batch size and flush interval come from influxdb.batch_size and
// influxdb.flush_interval.
package influxdb
