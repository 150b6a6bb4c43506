package peer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ansilo/internal/auth"
	"ansilo/internal/connector"
	"ansilo/internal/connector/postgres"
	"ansilo/internal/ierrors"
)

func init() {
	connector.Register(&Connector{})
}

type Connector struct{}

func (Connector) Name() connector.Name { return "peer" }

// NewConnectionPool dials one pgx.Conn per acquire rather than pooling,
// since a peer connection's lifetime is the span of one chained query
// (§4.D) rather than a long-lived warehouse connection pool.
func (Connector) NewConnectionPool(opts connector.Options) (connector.ConnectionPool, error) {
	o, ok := opts.(Options)
	if !ok {
		return nil, fmt.Errorf("peer: NewConnectionPool expects peer.Options, got %T", opts)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &pool{opts: o}, nil
}

var _ connector.Connector = Connector{}

type pool struct {
	opts Options
}

// Acquire forwards the local session's auth.Context as the dialed user on
// the peer node when one is present, the same SSO-token-to-remote-DB
// passthrough internal/connector/postgres performs for its per-user
// connections — but here it is the chained-query identity that propagates
// onward to the next node in the chain (§4.D) rather than stopping at this
// node.
func (p *pool) Acquire(ctx context.Context, authCtx *auth.Context) (connector.Connection, error) {
	cfg, err := pgx.ParseConfig(p.opts.DSN)
	if err != nil {
		return nil, ierrors.New(ierrors.Fatal, "peer.Acquire", err)
	}
	if authCtx != nil && authCtx.Username != "" {
		cfg.User = authCtx.Username
	}
	pc, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, ierrors.New(ierrors.Transient, "peer.Acquire", err)
	}
	inner := postgres.NewPeerConnection(pc, p.opts.schemaOrDefault())
	return &conn{Connection: inner, pgx: pc, catalogURL: p.opts.CatalogURL}, nil
}

func (p *pool) Release(c connector.Connection) { _ = c.Close() }

func (p *pool) Close() error { return nil }

// conn embeds the postgres-backed Connection for planning/compiling/
// transactions (a peer speaks Postgres wire, so pushdown translation is
// identical) and overrides only entity discovery to go through the peer's
// unauthenticated catalog endpoint instead of information_schema, which
// would require the querying node to already hold a data-plane session.
type conn struct {
	connector.Connection
	pgx        *pgx.Conn
	catalogURL string
}

func (c *conn) EntitySearcher() connector.EntitySearcher {
	return &catalogSearcher{baseURL: c.catalogURL}
}

func (c *conn) Close() error {
	return c.pgx.Close(context.Background())
}

var (
	_ connector.Connection     = (*conn)(nil)
	_ connector.ConnectionPool = (*pool)(nil)
)
