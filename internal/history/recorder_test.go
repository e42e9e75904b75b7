package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/plugsync/internal/device"
	"github.com/nerrad567/plugsync/internal/infrastructure/database"
	_ "github.com/nerrad567/plugsync/migrations"
)

func openMigratedDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db
}

func count(t *testing.T, db *database.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}

func TestRecorder_WritesStateAndKeepAlive(t *testing.T) {
	db := openMigratedDB(t)
	r := NewRecorder(db.DB, nil)
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	r.StateChanged("kitchen", device.StateOn, device.StateUnknown)
	r.StateChanged("kitchen", device.StateOff, device.StateOn)
	r.KeepAliveExpired("kitchen")
	r.KeepAliveReactivated("kitchen")
	r.TelemetryReceived("kitchen", nil)

	require.Eventually(t, func() bool {
		return count(t, db, "SELECT COUNT(*) FROM keepalive_events") == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 2, count(t, db, "SELECT COUNT(*) FROM state_history WHERE device = ?", "kitchen"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM state_history WHERE state = 'on' AND old_state = 'unknown'"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM keepalive_events WHERE kind = ?", KindExpired))

	var observed string
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT observed_at FROM state_history LIMIT 1").Scan(&observed))
	assert.Equal(t, fixed.Format(time.RFC3339Nano), observed)
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	db := openMigratedDB(t)
	r := NewRecorder(db.DB, nil)

	for range QueueSize + 3 {
		r.StateChanged("kitchen", device.StateOn, device.StateOff)
	}
	assert.Equal(t, int64(3), r.Dropped())

	// Queued records are written on shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))
	assert.Equal(t, QueueSize, count(t, db, "SELECT COUNT(*) FROM state_history"))
}
