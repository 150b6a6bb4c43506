// Package postgres implements the native Postgres connector on top of
// jackc/pgx/v5's async pool, the same driver the original implementation's
// own Postgres connector used via its Rust client. It also backs the peer
// connector (internal/connector/peer), since a peer node's IPC surface is
// itself a Postgres-wire-compatible frontend in the original architecture.
package postgres

import "fmt"

// Options configures one Postgres connector instance; decoded from a
// node's YAML connector config by internal/nodeconfig.
type Options struct {
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
}

func (o Options) validate() error {
	if o.DSN == "" {
		return fmt.Errorf("postgres: dsn is required")
	}
	if o.Schema == "" {
		return fmt.Errorf("postgres: schema is required")
	}
	return nil
}
