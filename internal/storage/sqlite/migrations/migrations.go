// Package migrations embeds the versioned schema files applied by the sqlite store.
package migrations

import "embed"

// FS holds the NNN_name.up.sql files
//
//go:embed *.sql
var FS embed.FS
