// Package database provides SQLite persistence for Gray Logic Device.
//
// The device keeps very little durable state: its provisioned identity and
// the remotely updatable metadata blob. Both live in a single SQLite file so
// that a power cut mid-write leaves either the old or the new value, never a
// torn JSON file.
//
// This package manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Applying embedded, additive-only schema migrations
//   - Health checks for start-up verification
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
