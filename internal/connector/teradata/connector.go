package teradata

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"ansilo/internal/auth"
	"ansilo/internal/connector"
	"ansilo/internal/connector/sqlgeneric"
	"ansilo/internal/ierrors"
)

func init() {
	connector.Register(&Connector{})
}

type Connector struct{}

func (Connector) Name() connector.Name { return "teradata" }

func (Connector) NewConnectionPool(opts connector.Options) (connector.ConnectionPool, error) {
	o, ok := opts.(Options)
	if !ok {
		return nil, fmt.Errorf("teradata: NewConnectionPool expects teradata.Options, got %T", opts)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	var creds credentials.TransportCredentials
	if o.Insecure {
		creds = insecure.NewCredentials()
	} else {
		creds = credentials.NewTLS(nil)
	}

	cc, err := grpc.NewClient(o.Addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, ierrors.New(ierrors.Transient, "teradata.NewConnectionPool", err)
	}
	return &pool{cc: cc, database: o.Database}, nil
}

var _ connector.Connector = Connector{}

type pool struct {
	cc       *grpc.ClientConn
	database string
}

// Acquire ignores authCtx: every query rides the shared *grpc.ClientConn
// under one set of channel credentials, there is no per-call re-auth hook.
func (p *pool) Acquire(context.Context, *auth.Context) (connector.Connection, error) {
	return &conn{cc: p.cc, database: p.database}, nil
}

func (p *pool) Release(connector.Connection) {}

func (p *pool) Close() error { return p.cc.Close() }

var _ connector.ConnectionPool = (*pool)(nil)

// conn carries no per-acquire state of its own beyond the transaction id a
// Begin call may assign; every query rides the shared *grpc.ClientConn,
// same as a database/sql pool's *sql.Conn is cheap to hand out per-acquire.
type conn struct {
	cc       grpcInvoker
	database string
	txID     string
}

func (c *conn) EntitySearcher() connector.EntitySearcher   { return &searcher{conn: c} }
func (c *conn) EntityValidator() connector.EntityValidator { return &validator{conn: c} }
func (c *conn) QueryPlanner() connector.QueryPlanner       { return sqlgeneric.NewPlanner() }
func (c *conn) QueryCompiler() connector.QueryCompiler     { return &compiler{conn: c} }
func (c *conn) TransactionManager() connector.TransactionManager {
	return &txManager{conn: c}
}

func (c *conn) Close() error { return nil }

var _ connector.Connection = (*conn)(nil)
