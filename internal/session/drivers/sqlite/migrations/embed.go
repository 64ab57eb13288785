// Package migrations embeds the session database schema migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
