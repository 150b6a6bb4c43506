package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"ansilo/internal/auth"
	"ansilo/internal/connector"
	"ansilo/internal/connector/sqlgeneric"
	"ansilo/internal/ierrors"
)

func init() {
	connector.Register(&Connector{})
}

type Connector struct{}

func (Connector) Name() connector.Name { return "sqlite" }

func (Connector) NewConnectionPool(opts connector.Options) (connector.ConnectionPool, error) {
	o, ok := opts.(Options)
	if !ok {
		return nil, fmt.Errorf("sqlite: NewConnectionPool expects sqlite.Options, got %T", opts)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", o.Path)
	if err != nil {
		return nil, ierrors.New(ierrors.Transient, "sqlite.NewConnectionPool", err)
	}
	// SQLite's single-writer model means only one open connection is safe
	// for mixed read/write workloads.
	db.SetMaxOpenConns(1)
	return &pool{db: db}, nil
}

var _ connector.Connector = Connector{}

type pool struct {
	db *sql.DB
}

// Acquire ignores authCtx: SQLite has no server-side principal to
// re-authenticate as, a single file-backed connection serves every caller.
func (p *pool) Acquire(ctx context.Context, _ *auth.Context) (connector.Connection, error) {
	c, err := p.db.Conn(ctx)
	if err != nil {
		return nil, ierrors.New(ierrors.Transient, "sqlite.Acquire", err)
	}
	return &conn{sqlConn: c}, nil
}

func (p *pool) Release(c connector.Connection) {
	if sc, ok := c.(*conn); ok {
		_ = sc.sqlConn.Close()
	}
}

func (p *pool) Close() error { return p.db.Close() }

type conn struct {
	sqlConn *sql.Conn
	tx      *sql.Tx
}

func (c *conn) EntitySearcher() connector.EntitySearcher   { return &searcher{conn: c} }
func (c *conn) EntityValidator() connector.EntityValidator { return &validator{conn: c} }
func (c *conn) QueryPlanner() connector.QueryPlanner       { return sqlgeneric.NewPlanner() }
func (c *conn) QueryCompiler() connector.QueryCompiler {
	return sqlgeneric.NewCompiler(sqlgeneric.Backtick{}, c.sqlConn)
}
func (c *conn) TransactionManager() connector.TransactionManager { return &txManager{conn: c} }

func (c *conn) Close() error { return c.sqlConn.Close() }

var (
	_ connector.Connection     = (*conn)(nil)
	_ connector.ConnectionPool = (*pool)(nil)
)
