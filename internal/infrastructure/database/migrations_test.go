package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMigrations(t *testing.T, fsys fstest.MapFS) {
	t.Helper()
	origFS, origDir := Migrations, MigrationsDir
	t.Cleanup(func() {
		Migrations, MigrationsDir = origFS, origDir
	})
	Migrations, MigrationsDir = fsys, "."
}

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
		"20260101_000000_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
		"20260102_000000_gadgets.up.sql":   {Data: []byte("CREATE TABLE gadgets (id INTEGER PRIMARY KEY);")},
		"README.md":                        {Data: []byte("not a migration")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n))
	return n == 1
}

func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrations())
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))
	assert.True(t, tableExists(t, db, "widgets"))
	assert.True(t, tableExists(t, db, "gadgets"))

	applied, pending, err := db.MigrationStatus(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "20260101_000000", applied[0].Version)
	assert.False(t, applied[0].AppliedAt.IsZero())
	assert.Empty(t, pending)

	// Idempotent.
	require.NoError(t, db.Migrate(ctx))
}

func TestMigrateDown(t *testing.T) {
	fsys := testMigrations()
	delete(fsys, "20260102_000000_gadgets.up.sql")
	useMigrations(t, fsys)
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.MigrateDown(ctx))
	assert.False(t, tableExists(t, db, "widgets"))

	applied, pending, err := db.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Len(t, pending, 1)

	// Nothing left to roll back.
	assert.NoError(t, db.MigrateDown(ctx))
}

func TestMigrateDown_NoDownSQL(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20260102_000000_gadgets.up.sql": {Data: []byte("CREATE TABLE gadgets (id INTEGER);")},
	})
	db := openTestDB(t)

	require.NoError(t, db.Migrate(context.Background()))
	err := db.MigrateDown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no down SQL")
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20260101_000000_good.up.sql": {Data: []byte("CREATE TABLE good (id INTEGER);")},
		"20260102_000000_bad.up.sql":  {Data: []byte("CREATE TABLE bad (id INTEGER); INSERT INTO nowhere VALUES (1);")},
	})
	db := openTestDB(t)

	err := db.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "20260102_000000")
	assert.True(t, tableExists(t, db, "good"))
	assert.False(t, tableExists(t, db, "bad"))
}

func TestMigrate_NoMigrations(t *testing.T) {
	origFS := Migrations
	t.Cleanup(func() { Migrations = origFS })
	Migrations = nil

	db := openTestDB(t)
	assert.NoError(t, db.Migrate(context.Background()))
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name    string
		version string
		isUp    bool
		ok      bool
	}{
		{"20260601_120000_state_history.up.sql", "20260601_120000", true, true},
		{"20260601_120000_state_history.down.sql", "20260601_120000", false, true},
		{"20260601_120000.up.sql", "20260601_120000", true, true},
		{"20260601_120000_state_history.sql", "", false, false},
		{"notes.txt", "", false, false},
		{"single.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.isUp, isUp)
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	assert.Equal(t, "state_history", extractMigrationName("20260601_120000_state_history.up.sql"))
	assert.Equal(t, "20260601_120000", extractMigrationName("20260601_120000.down.sql"))
}
