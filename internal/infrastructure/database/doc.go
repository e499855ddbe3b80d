// Package database provides SQLite connection management and schema
// migrations for Taskdeck.
//
// # Features
//
//   - WAL mode for concurrent reads during writes
//   - Foreign key enforcement (task ownership cascades rely on it)
//   - Versioned, embedded SQL migrations with up/down support
//   - Health checks for operational monitoring
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        "./data/taskdeck.db",
//	    WALMode:     true,
//	    BusyTimeout: 5,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are embedded by the top-level migrations package and
// follow the naming convention YYYYMMDD_HHMMSS_description.up.sql (with an
// optional matching .down.sql for rollback).
package database
