// Package peer implements the peer-to-peer connector: one Ansilo node
// querying another over the same Postgres-wire FDW frontend every external
// client uses, chaining pushdown across node boundaries (§4.D). It reuses
// internal/connector/postgres's planner/compiler wholesale since a peer's
// wire protocol is Postgres-compatible by construction, and adds its own
// entity discovery against the peer's unauthenticated catalog endpoint.
package peer

import "fmt"

// Options configures one peer connector instance.
type Options struct {
	// DSN dials the peer node's Postgres-wire frontend directly.
	DSN string `yaml:"dsn"`
	// CatalogURL is the peer's unauthenticated entity catalog endpoint,
	// e.g. http://peer-node:8080/catalog. Discovery is unauthenticated by
	// design (§4.D) -- a peer only exposes schema shape, never data, before
	// the querying node authenticates its own AuthDataSource session.
	CatalogURL string `yaml:"catalog_url"`
	Schema     string `yaml:"schema"`
}

func (o Options) validate() error {
	if o.DSN == "" {
		return fmt.Errorf("peer: dsn is required")
	}
	if o.CatalogURL == "" {
		return fmt.Errorf("peer: catalog_url is required")
	}
	return nil
}

func (o Options) schemaOrDefault() string {
	if o.Schema == "" {
		return "public"
	}
	return o.Schema
}
