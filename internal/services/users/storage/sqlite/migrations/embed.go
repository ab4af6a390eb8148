package migrations

import "embed"

// FS contains embedded SQLite migrations for user storage.
//
//go:embed *.sql
var FS embed.FS
