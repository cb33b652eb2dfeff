// Package migrations embeds the goose SQL migrations for the WHO dashboard schema.
//
// The first migration only uses CREATE ... IF NOT EXISTS so it can be applied on top of an
// existing who.db export.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
