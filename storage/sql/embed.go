package sql

import "embed"

// SchemaFS contains the SQL migration files under schema/
//
//go:embed schema/*.sql
var SchemaFS embed.FS
