package mysql

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"ansilo/internal/auth"
	"ansilo/internal/connector"
	"ansilo/internal/connector/sqlgeneric"
	"ansilo/internal/ierrors"
)

func init() {
	connector.Register(&Connector{})
}

// Connector backs MySQL, MariaDB and TiDB: all three speak the MySQL wire
// protocol go-sql-driver/mysql implements, and all three are queried through
// sqlgeneric's shared Backtick-quoted renderer.
type Connector struct{}

func (Connector) Name() connector.Name { return "mysql" }

func (Connector) NewConnectionPool(opts connector.Options) (connector.ConnectionPool, error) {
	o, ok := opts.(Options)
	if !ok {
		return nil, fmt.Errorf("mysql: NewConnectionPool expects mysql.Options, got %T", opts)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("mysql", o.DSN)
	if err != nil {
		return nil, ierrors.New(ierrors.Transient, "mysql.NewConnectionPool", err)
	}
	return &pool{db: db}, nil
}

var _ connector.Connector = Connector{}

type pool struct {
	db *sqlx.DB
}

// Acquire ignores authCtx: the underlying sqlx.DB pools connections under one
// DSN's credentials, same constraint as internal/connector/mssql's pool.
func (p *pool) Acquire(ctx context.Context, _ *auth.Context) (connector.Connection, error) {
	c, err := p.db.Connx(ctx)
	if err != nil {
		return nil, ierrors.New(ierrors.Transient, "mysql.Acquire", err)
	}
	return &conn{sqlxConn: c}, nil
}

func (p *pool) Release(c connector.Connection) {
	if mc, ok := c.(*conn); ok {
		_ = mc.sqlxConn.Close()
	}
}

func (p *pool) Close() error { return p.db.Close() }

type conn struct {
	sqlxConn *sqlx.Conn
	tx       *sqlx.Tx
}

func (c *conn) EntitySearcher() connector.EntitySearcher   { return &searcher{conn: c} }
func (c *conn) EntityValidator() connector.EntityValidator { return &validator{conn: c} }
func (c *conn) QueryPlanner() connector.QueryPlanner       { return sqlgeneric.NewPlanner() }
func (c *conn) QueryCompiler() connector.QueryCompiler {
	return sqlgeneric.NewCompiler(sqlgeneric.Backtick{}, c.sqlxConn.Conn)
}
func (c *conn) TransactionManager() connector.TransactionManager { return &txManager{conn: c} }

func (c *conn) Close() error { return c.sqlxConn.Close() }

var (
	_ connector.Connection     = (*conn)(nil)
	_ connector.ConnectionPool = (*pool)(nil)
)
