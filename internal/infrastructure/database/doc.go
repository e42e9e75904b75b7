// Package database opens plugsync's SQLite file and applies its schema
// migrations.
//
// The database holds write-only audit data (see package history); nothing
// read from it is used to restore device state.
//
// Usage:
//
//	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are YYYYMMDD_HHMMSS_description.up.sql files with matching
// .down.sql files. The migrations package embeds them and registers the
// filesystem in Migrations at init.
package database
