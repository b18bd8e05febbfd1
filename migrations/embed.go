// Package migrations embeds the PostgreSQL schema migrations so the binaries
// do not depend on the working directory.
package migrations

import "embed"

// FS holds every *.sql migration of this directory
//
//go:embed *.sql
var FS embed.FS
