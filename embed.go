package attendant

import "embed"

// MigrationsFS holds the embedded SQL migrations applied at startup.
//
//go:embed migrations
var MigrationsFS embed.FS
