// Package migrations embeds the goose SQL migrations that bring a fresh
// SQLite database to the current schema. Legacy databases are upgraded by
// the migrate package before these run.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
