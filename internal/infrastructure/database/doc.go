// Package database provides SQLite connectivity for LockWise Core.
//
// This package manages:
//   - The connection, with WAL mode and a busy timeout
//   - Ordered, per-file transactional schema migrations
//
// All queries use parameterised statements. The database file is chmod
// 0600 after opening.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
package database
