// Package migrations embeds the SQL schema files applied by "readmit-server migrate".
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
