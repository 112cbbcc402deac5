// Package migrations embeds the versioned SQL schema applied by golang-migrate.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file in this directory
//
//go:embed *.sql
var FS embed.FS
