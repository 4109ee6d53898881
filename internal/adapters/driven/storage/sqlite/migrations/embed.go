// Package migrations holds the versioned schema for the metadata store.
package migrations

import "embed"

// FS holds the NNN_name.up.sql files, applied in name order.
//
//go:embed *.up.sql
var FS embed.FS
