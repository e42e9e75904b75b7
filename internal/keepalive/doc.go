// Package keepalive implements the liveness watchdog.
//
// A KeepAlive ties a plug to a pair of topics. While the plug is on, the
// watchdog publishes a heartbeat on PublishTopic every Interval and expects
// something back on SubscribeTopic. If nothing arrives for Timeout the plug
// is driven off. A signal arriving while the plug is off turns it back on.
//
// The first heartbeat after the plug comes on also resets the receive
// timestamp, so a plug that has been off for a long time is not expired on
// the very next tick.
//
// Check and HandleSignal take the current time as an argument; Run drives
// Check from a ticker.
package keepalive
