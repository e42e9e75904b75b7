package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/plugsync/internal/device"
	"github.com/nerrad567/plugsync/internal/event"
)

// QueueSize is the capacity of the Recorder's write queue.
const QueueSize = 256

// writeTimeout bounds each insert. Writes outlive cancellation of Run's
// context so queued records still land on shutdown.
const writeTimeout = 2 * time.Second

// Keep-alive event kinds.
const (
	KindExpired     = "expired"
	KindReactivated = "reactivated"
)

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type record struct {
	query string
	args  []any
}

// Recorder writes audit records asynchronously. When the queue is full
// records are dropped and counted.
//
// Thread Safety:
//   - Observer methods are safe for concurrent use.
//   - Run must be called once.
type Recorder struct {
	db      *sql.DB
	queue   chan record
	logger  Logger
	now     func() time.Time
	dropped atomic.Int64
}

// NewRecorder creates a Recorder writing to db, which must have the
// state_history and keepalive_events tables.
func NewRecorder(db *sql.DB, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		db:     db,
		queue:  make(chan record, QueueSize),
		logger: logger,
		now:    time.Now,
	}
}

// StateChanged implements router.Observer.
func (r *Recorder) StateChanged(name string, state, old device.State) {
	r.enqueue(record{
		query: "INSERT INTO state_history (device, state, old_state, observed_at) VALUES (?, ?, ?, ?)",
		args:  []any{name, state.String(), old.String(), r.timestamp()},
	})
}

// TelemetryReceived implements router.Observer. Telemetry is not audited.
func (r *Recorder) TelemetryReceived(string, []event.Field) {}

// KeepAliveExpired implements keepalive.Observer.
func (r *Recorder) KeepAliveExpired(location string) {
	r.keepAliveEvent(location, KindExpired)
}

// KeepAliveReactivated implements keepalive.Observer.
func (r *Recorder) KeepAliveReactivated(location string) {
	r.keepAliveEvent(location, KindReactivated)
}

// Dropped returns how many records were discarded on a full queue.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Run writes queued records until ctx is cancelled, then writes whatever
// is still queued before returning.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case rec := <-r.queue:
			r.write(ctx, rec)
		case <-ctx.Done():
			r.drain(ctx)
			return nil
		}
	}
}

func (r *Recorder) drain(ctx context.Context) {
	for {
		select {
		case rec := <-r.queue:
			r.write(ctx, rec)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, rec record) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if _, err := r.db.ExecContext(ctx, rec.query, rec.args...); err != nil {
		r.logger.Error("writing history record failed", "error", fmt.Errorf("inserting history: %w", err))
	}
}

func (r *Recorder) keepAliveEvent(location, kind string) {
	r.enqueue(record{
		query: "INSERT INTO keepalive_events (location, kind, observed_at) VALUES (?, ?, ?)",
		args:  []any{location, kind, r.timestamp()},
	})
}

func (r *Recorder) enqueue(rec record) {
	select {
	case r.queue <- rec:
	default:
		if r.dropped.Add(1) == 1 {
			r.logger.Warn("history queue full, dropping records")
		}
	}
}

func (r *Recorder) timestamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}
