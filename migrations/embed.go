// Package migrations embeds the SQL schema for every supported backend.
package migrations

import "embed"

// FS holds sqlite/*.sql and postgres/*.sql, named NNN_description.sql.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
