// Package migrations embeds the device schema into the binary so the agent
// can bring a fresh state file up to date without SQL files on disk.
package migrations

import "embed"

//go:embed *.sql
var files embed.FS

// FS holds the *.up.sql files at its root, ready for database.DB.Migrate.
var FS = files
