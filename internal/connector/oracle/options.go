// Package oracle implements the Oracle connector on top of
// github.com/sijms/go-ora/v2, a pure-Go driver that speaks Oracle's wire
// protocol directly over database/sql rather than through a JNI/JDBC bridge
// (unlike the Teradata connector, which has no such native option -- see
// internal/connector/teradata). Its planner and renderer are their own
// package rather than a reuse of internal/connector/sqlgeneric, because
// Oracle's pushdown semantics diverge in two ways that skeleton doesn't
// model: it must reject non-pushable scalar functions (MD5 below 12c) and
// must expose ROWID as a row id for locked local-predicate UPDATE/DELETE.
package oracle

import "fmt"

// Options configures one Oracle connector instance; decoded from a node's
// YAML connector config by internal/nodeconfig.
type Options struct {
	DSN string `yaml:"dsn"`
	// Schema is the owning user/schema queries are qualified against;
	// Oracle has no separate "current schema" concept beyond the connecting
	// user by default, but ALL_TAB_COLUMNS lets a connection read another
	// owner's catalog, so this is still spelled out explicitly rather than
	// inferred from the DSN's username.
	Schema string `yaml:"schema"`
}

func (o Options) validate() error {
	if o.DSN == "" {
		return fmt.Errorf("oracle: dsn is required")
	}
	if o.Schema == "" {
		return fmt.Errorf("oracle: schema is required")
	}
	return nil
}
