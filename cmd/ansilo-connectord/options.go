package main

import (
	"fmt"

	"ansilo/internal/connector"
	"ansilo/internal/connector/avro"
	"ansilo/internal/connector/mongo"
	"ansilo/internal/connector/mssql"
	"ansilo/internal/connector/mysql"
	"ansilo/internal/connector/oracle"
	"ansilo/internal/connector/peer"
	"ansilo/internal/connector/postgres"
	"ansilo/internal/connector/sqlite"
	"ansilo/internal/connector/teradata"
	"ansilo/internal/nodeconfig"
)

// decodeConnectorOptions re-decodes a data source declaration's raw options
// map into the concrete Options struct the named connector expects. The
// switch exists because connector.Options is deliberately opaque (each
// connector owns its own shape); this is the one place that needs to know
// every connector package by name, mirroring dialect.GetDialect's role as
// the sole place the teacher's dialect set is enumerated.
func decodeConnectorOptions(name string, raw map[string]any) (connector.Options, error) {
	switch connector.Name(name) {
	case "postgres":
		var o postgres.Options
		return o, nodeconfig.RemarshalOptions(raw, &o)
	case "sqlite":
		var o sqlite.Options
		return o, nodeconfig.RemarshalOptions(raw, &o)
	case "mysql":
		var o mysql.Options
		return o, nodeconfig.RemarshalOptions(raw, &o)
	case "oracle":
		var o oracle.Options
		return o, nodeconfig.RemarshalOptions(raw, &o)
	case "mssql":
		var o mssql.Options
		return o, nodeconfig.RemarshalOptions(raw, &o)
	case "mongo":
		var o mongo.Options
		return o, nodeconfig.RemarshalOptions(raw, &o)
	case "avro":
		var o avro.Options
		return o, nodeconfig.RemarshalOptions(raw, &o)
	case "teradata":
		var o teradata.Options
		return o, nodeconfig.RemarshalOptions(raw, &o)
	case "peer":
		var o peer.Options
		return o, nodeconfig.RemarshalOptions(raw, &o)
	default:
		return nil, fmt.Errorf("unknown connector %q", name)
	}
}
