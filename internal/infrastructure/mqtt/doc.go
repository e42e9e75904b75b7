// Package mqtt provides MQTT client connectivity for plugsync.
//
// This package manages:
//   - Connection to the broker (TCP or TLS, optional credentials)
//   - Message publishing with the configured QoS and retain flag
//   - Topic subscriptions with panic-safe handlers
//   - Last Will and Testament (LWT) for offline detection
//   - Connection loss notification via Lost()
//
// # Session model
//
// A Client is bound to a single broker connection. paho's auto-reconnect is
// switched off; when the connection drops, Lost() fires and the bridge
// supervisor discards the whole session (devices, queues, client) and
// reconnects with a fresh one after mqtt.reconnect_interval.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(cfg.Topic("kitchen"), 0,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.Publish(mqtt.Topics{}.Emeter(cfg.Topic("kitchen")), []byte("power=4.2"), 0, false)
//
//	select {
//	case err := <-client.Lost():
//	    // reconnect
//	case <-ctx.Done():
//	}
package mqtt
