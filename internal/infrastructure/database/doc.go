// Package database provides SQLite connectivity for the sqlite storage backend.
//
// It opens the database with WAL mode and a busy timeout, exposes a health
// check, and applies additive schema migrations from an fs.FS (normally the
// embedded files of the top-level migrations package).
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/growctl.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
//	    return err
//	}
package database
