// Package history keeps a SQLite audit log of plug state changes and
// keep-alive events.
//
// The log is write-only: it is never read back to restore device state.
// Recorder implements router.Observer and keepalive.Observer; observer
// calls only queue the record, and Run writes it.
package history
