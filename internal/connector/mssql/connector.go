package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"ansilo/internal/auth"
	"ansilo/internal/connector"
	"ansilo/internal/ierrors"
)

func init() {
	connector.Register(&Connector{})
}

type Connector struct{}

func (Connector) Name() connector.Name { return "mssql" }

func (Connector) NewConnectionPool(opts connector.Options) (connector.ConnectionPool, error) {
	o, ok := opts.(Options)
	if !ok {
		return nil, fmt.Errorf("mssql: NewConnectionPool expects mssql.Options, got %T", opts)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlserver", o.DSN)
	if err != nil {
		return nil, ierrors.New(ierrors.Transient, "mssql.NewConnectionPool", err)
	}
	return &pool{db: db, schema: o.Schema}, nil
}

var _ connector.Connector = Connector{}

type pool struct {
	db     *sql.DB
	schema string
}

// Acquire ignores authCtx: go-mssqldb pools connections under one DSN's
// credentials and does not support re-authenticating a pooled *sql.Conn as
// a different principal mid-flight.
func (p *pool) Acquire(ctx context.Context, _ *auth.Context) (connector.Connection, error) {
	c, err := p.db.Conn(ctx)
	if err != nil {
		return nil, classifyMssqlError("mssql.Acquire", err)
	}
	return &msConn{schema: p.schema, sqlConn: c}, nil
}

func (p *pool) Release(c connector.Connection) {
	if mc, ok := c.(*msConn); ok {
		_ = mc.sqlConn.Close()
	}
}

func (p *pool) Close() error { return p.db.Close() }

type msConn struct {
	schema  string
	sqlConn *sql.Conn
	tx      *sql.Tx
}

func (c *msConn) EntitySearcher() connector.EntitySearcher   { return &searcher{conn: c} }
func (c *msConn) EntityValidator() connector.EntityValidator { return &validator{conn: c} }
func (c *msConn) QueryPlanner() connector.QueryPlanner       { return newPlanner(c.schema) }
func (c *msConn) QueryCompiler() connector.QueryCompiler     { return newCompiler(c.sqlConn) }
func (c *msConn) TransactionManager() connector.TransactionManager {
	return &txManager{conn: c}
}

func (c *msConn) Close() error { return c.sqlConn.Close() }

var (
	_ connector.Connection     = (*msConn)(nil)
	_ connector.ConnectionPool = (*pool)(nil)
)
