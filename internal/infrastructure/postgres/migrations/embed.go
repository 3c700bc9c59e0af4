// Package migrations holds the ledger schema.
package migrations

import "embed"

// FS contains the golang-migrate files of this directory.
//
//go:embed *.sql
var FS embed.FS
