package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ansilo/internal/auth"
	"ansilo/internal/connector"
	"ansilo/internal/ierrors"
)

func init() {
	connector.Register(&Connector{})
}

type Connector struct{}

func (Connector) Name() connector.Name { return "postgres" }

func (Connector) NewConnectionPool(opts connector.Options) (connector.ConnectionPool, error) {
	o, ok := opts.(Options)
	if !ok {
		return nil, fmt.Errorf("postgres: NewConnectionPool expects postgres.Options, got %T", opts)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(context.Background(), o.DSN)
	if err != nil {
		return nil, ierrors.New(ierrors.Transient, "postgres.NewConnectionPool", err)
	}
	return &connPool{pool: pool, schema: o.Schema}, nil
}

var _ connector.Connector = Connector{}

type connPool struct {
	pool   *pgxpool.Pool
	schema string
}

// Acquire returns a connection from the shared pool, unless authCtx carries
// a username, in which case it dials a dedicated connection authenticated
// as that user instead of handing out a connection opened under the pool's
// own service credentials -- the SSO-token-to-remote-DB passthrough case.
func (p *connPool) Acquire(ctx context.Context, authCtx *auth.Context) (connector.Connection, error) {
	if authCtx != nil && authCtx.Username != "" {
		return p.acquirePerUser(ctx, authCtx)
	}
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, ierrors.New(ierrors.Transient, "postgres.Acquire", err)
	}
	return &pgConn{schema: p.schema, pooled: c, pgx: c.Conn()}, nil
}

func (p *connPool) acquirePerUser(ctx context.Context, authCtx *auth.Context) (connector.Connection, error) {
	cfg := p.pool.Config().ConnConfig.Copy()
	cfg.User = authCtx.Username
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, ierrors.New(ierrors.Auth, "postgres.Acquire", err)
	}
	return &pgConn{schema: p.schema, pgx: conn}, nil
}

func (p *connPool) Release(c connector.Connection) {
	if pc, ok := c.(*pgConn); ok && pc.pooled != nil {
		pc.pooled.Release()
	}
}

func (p *connPool) Close() error {
	p.pool.Close()
	return nil
}

// pgConn wraps one acquired pgxpool connection (or, for the peer connector,
// a *pgx.Conn dialed directly -- see internal/connector/peer). pooled is
// nil in the latter case since there is nothing to release back to a pool.
type pgConn struct {
	schema string
	pooled *pgxpool.Conn
	pgx    *pgx.Conn
	tx     pgx.Tx
}

func (c *pgConn) EntitySearcher() connector.EntitySearcher   { return &searcher{conn: c} }
func (c *pgConn) EntityValidator() connector.EntityValidator { return &validator{conn: c} }
func (c *pgConn) QueryPlanner() connector.QueryPlanner       { return newPlanner(c.schema) }
func (c *pgConn) QueryCompiler() connector.QueryCompiler     { return newCompiler(c.schema, c) }
func (c *pgConn) TransactionManager() connector.TransactionManager {
	return &txManager{conn: c}
}

func (c *pgConn) Close() error {
	if c.pooled != nil {
		c.pooled.Release()
		return nil
	}
	return c.pgx.Close(context.Background())
}

var (
	_ connector.Connection     = (*pgConn)(nil)
	_ connector.ConnectionPool = (*connPool)(nil)
)

// NewPeerConnection wraps an already-dialed *pgx.Conn as a connector.Connection,
// reusing this package's planner/compiler/searcher/validator instead of the
// pooled Acquire path. Used by internal/connector/peer, whose connections are
// one-per-session direct dials to another Ansilo node's Postgres-wire FDW
// frontend rather than a pooled warehouse connection.
func NewPeerConnection(pgxConn *pgx.Conn, schema string) connector.Connection {
	return &pgConn{schema: schema, pgx: pgxConn}
}
