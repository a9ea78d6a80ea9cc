// Package migrations holds the ordered schema files for the sqlite store
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
