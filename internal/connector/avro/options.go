// Package avro implements a connector over a directory of Avro Object
// Container Files (OCF): one file per entity, schema embedded in the file
// header, rows read/written with github.com/hamba/avro/v2/ocf.
//
// Unlike the SQL connectors there is no query language to push predicates,
// joins or aggregation into — an OCF file is a flat, sequential record log.
// The planner therefore only accepts the capabilities a sequential scan can
// genuinely provide cheaply (column projection, row limit, row skip) and
// leaves WHERE, JOIN,
// GROUP BY and ORDER BY for the FDW to evaluate locally, matching how the
// file connector family is described upstream.
package avro

import "fmt"

// Options configures an avro connector instance. Dir is the directory that
// holds one ".avro" OCF file per entity. Queries always read and write
// <Dir>/<entity id>.avro; only the entity validator (see introspect.go)
// honours a Source["path"] relative to Dir.
type Options struct {
	Dir string
}

func (o Options) validate() error {
	if o.Dir == "" {
		return fmt.Errorf("avro: Options.Dir must not be empty")
	}
	return nil
}
