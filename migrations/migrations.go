// Package migrations embeds the PostgreSQL schema migrations.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file in golang-migrate naming.
//
//go:embed *.sql
var FS embed.FS
