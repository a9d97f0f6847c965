// Package all registers every storage backend. Import it for side effects.
package all

import (
	_ "schemagroup/internal/storage/mssql"
	_ "schemagroup/internal/storage/postgres"
	_ "schemagroup/internal/storage/sqlite"
)
