package postgres

import "schemagroup/internal/storage"

func init() {
	storage.Register("postgres", New)
}
