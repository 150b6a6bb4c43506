// Package mssql implements the MS-SQL connector on top of the official
// github.com/microsoft/go-mssqldb database/sql driver. Its planner and
// renderer mirror internal/connector/postgres's own dedicated package
// rather than internal/connector/sqlgeneric's shared skeleton, because
// SQL Server's bracket-quoting, OFFSET/FETCH paging and named @p
// placeholders are all distinct enough from sqlgeneric's Dialect
// abstraction to warrant their own renderer, same reasoning as
// internal/connector/oracle.
package mssql

import "fmt"

// Options configures one MS-SQL connector instance; decoded from a node's
// YAML connector config by internal/nodeconfig.
type Options struct {
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
}

func (o Options) validate() error {
	if o.DSN == "" {
		return fmt.Errorf("mssql: dsn is required")
	}
	if o.Schema == "" {
		return fmt.Errorf("mssql: schema is required")
	}
	return nil
}
