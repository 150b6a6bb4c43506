package oracle

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/sijms/go-ora/v2"

	"ansilo/internal/auth"
	"ansilo/internal/connector"
	"ansilo/internal/ierrors"
)

func init() {
	connector.Register(&Connector{})
}

type Connector struct{}

func (Connector) Name() connector.Name { return "oracle" }

func (Connector) NewConnectionPool(opts connector.Options) (connector.ConnectionPool, error) {
	o, ok := opts.(Options)
	if !ok {
		return nil, fmt.Errorf("oracle: NewConnectionPool expects oracle.Options, got %T", opts)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open("oracle", o.DSN)
	if err != nil {
		return nil, ierrors.New(ierrors.Transient, "oracle.NewConnectionPool", err)
	}
	return &pool{db: db, schema: o.Schema}, nil
}

var _ connector.Connector = Connector{}

type pool struct {
	db     *sql.DB
	schema string
}

// Acquire ignores authCtx: go-ora pools connections under one DSN's
// credentials, same constraint as internal/connector/mssql's pool.
func (p *pool) Acquire(ctx context.Context, _ *auth.Context) (connector.Connection, error) {
	c, err := p.db.Conn(ctx)
	if err != nil {
		return nil, classifyOraError("oracle.Acquire", err)
	}
	return &oraConn{schema: p.schema, sqlConn: c}, nil
}

func (p *pool) Release(c connector.Connection) {
	if oc, ok := c.(*oraConn); ok {
		_ = oc.sqlConn.Close()
	}
}

func (p *pool) Close() error { return p.db.Close() }

// oraConn wraps one database/sql connection dialed through go-ora. Unlike
// internal/connector/sqlgeneric's shared skeleton, planner/compiler here are
// this package's own types, since Oracle's pushdown rules and row id
// semantics don't fit that skeleton's Dialect abstraction.
type oraConn struct {
	schema  string
	sqlConn *sql.Conn
	tx      *sql.Tx
}

func (c *oraConn) EntitySearcher() connector.EntitySearcher   { return &searcher{conn: c} }
func (c *oraConn) EntityValidator() connector.EntityValidator { return &validator{conn: c} }
func (c *oraConn) QueryPlanner() connector.QueryPlanner       { return newPlanner(c.schema) }
func (c *oraConn) QueryCompiler() connector.QueryCompiler     { return newCompiler(c.sqlConn) }
func (c *oraConn) TransactionManager() connector.TransactionManager {
	return &txManager{conn: c}
}

func (c *oraConn) Close() error { return c.sqlConn.Close() }

var (
	_ connector.Connection     = (*oraConn)(nil)
	_ connector.ConnectionPool = (*pool)(nil)
)
