// Package bridge assembles plugsync's loops into a running bridge.
//
// A Session owns everything built for one broker connection: the plugs,
// the keep-alive watchdog, the router, the central event queue and the
// outbound queue. Its loops run under one errgroup; the first error
// (normally a lost connection) cancels them all and nothing survives
// into the next session.
//
//	paho callback ──► events (256) ──► Router ──► Outbox (256) ──► publisher ──► broker
//	pollers ────────►                    │
//	                                     ├──► Plug.RequestState ──► dispatcher
//	Watchdog ────────────────────────────┴──► Outbox
//
// The Supervisor connects, runs a Session, and on bus failure waits
// mqtt.reconnect_interval before starting over from configuration.
// Configuration errors end the Supervisor immediately.
package bridge
