// Package mongo implements the document-store connector: per §4.D, each
// collection is modelled as a single-column entity whose one attribute
// ("doc") carries the whole document as JSON text (scenario 4 of §8:
// `INSERT INTO mongo_col VALUES ('{"_id": 1, "str":"a"}')` stores exactly
// that document). Its own renderer/planner/compiler exist because Mongo has
// no SQL dialect to render into at all — the shared sqlgeneric skeleton
// assumes a database/sql driver and a textual query language, neither of
// which Mongo has.
package mongo

import "fmt"

// docAttr is the attribute id of the single JSON column every entity this
// connector discovers or is configured with exposes.
const docAttr = "doc"

// Options configures the connector's connection pool.
type Options struct {
	// URI is a standard mongodb:// or mongodb+srv:// connection string.
	URI string
	// Database is the database name collections are resolved against; a
	// single connector instance is scoped to one database, matching the
	// entity source shape `{type: Collection, database_name, collection_name}`
	// from §4.E (database_name is carried per-entity for discovery output,
	// but every entity of one connector instance shares this default).
	Database string
}

func (o Options) validate() error {
	if o.URI == "" {
		return fmt.Errorf("mongo: URI is required")
	}
	if o.Database == "" {
		return fmt.Errorf("mongo: Database is required")
	}
	return nil
}
