package avro

import (
	"context"
	"fmt"

	"ansilo/internal/auth"
	"ansilo/internal/connector"
)

func init() {
	connector.Register(&Connector{})
}

type Connector struct{}

func (Connector) Name() connector.Name { return "avro" }

// NewConnectionPool just validates the base directory; there is no remote
// handshake, so the pool hands out conns that share the one Options value.
func (Connector) NewConnectionPool(opts connector.Options) (connector.ConnectionPool, error) {
	o, ok := opts.(Options)
	if !ok {
		return nil, fmt.Errorf("avro: NewConnectionPool expects avro.Options, got %T", opts)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &pool{dir: o.Dir}, nil
}

var _ connector.Connector = Connector{}

type pool struct {
	dir string
}

// Acquire ignores authCtx: the filesystem holding the OCF files has no
// per-principal authentication to pass through.
func (p *pool) Acquire(context.Context, *auth.Context) (connector.Connection, error) {
	return &conn{dir: p.dir}, nil
}

func (p *pool) Release(connector.Connection) {}

func (p *pool) Close() error { return nil }

var _ connector.ConnectionPool = (*pool)(nil)

// conn has no handle of its own: every file is opened fresh per query, since
// OCF readers/writers are cheap, single-use wrappers around *os.File.
type conn struct {
	dir string
}

func (c *conn) EntitySearcher() connector.EntitySearcher   { return &searcher{conn: c} }
func (c *conn) EntityValidator() connector.EntityValidator { return &validator{conn: c} }
func (c *conn) QueryPlanner() connector.QueryPlanner       { return newPlanner() }
func (c *conn) QueryCompiler() connector.QueryCompiler     { return &compiler{conn: c} }

// TransactionManager returns a no-op manager: a sequence of independent file
// rewrites has no atomic multi-statement grouping to offer.
func (c *conn) TransactionManager() connector.TransactionManager { return &txManager{} }

func (c *conn) Close() error { return nil }

var _ connector.Connection = (*conn)(nil)
