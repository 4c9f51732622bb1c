package migrations

import "embed"

// Files holds the forward-only schema for periods and sync metadata,
// applied in version order when the database opens.
//
//go:embed *.sql
var Files embed.FS
