// Package migrations embeds the goose SQL migrations shared by every supported driver.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
