package mssql

import (
	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver

	"schemagroup/internal/storage"
)

func init() {
	storage.Register("mssql", New)
}
