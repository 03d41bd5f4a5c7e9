// Package migrations embeds the SQL schema migrations applied by
// "clinic-server migrate up".
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
