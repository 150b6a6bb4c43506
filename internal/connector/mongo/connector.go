package mongo

import (
	"context"
	"fmt"
	"sync"

	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ansilo/internal/auth"
	"ansilo/internal/connector"
	"ansilo/internal/ierrors"
)

func init() {
	connector.Register(&Connector{})
}

type Connector struct{}

func (Connector) Name() connector.Name { return "mongo" }

func (Connector) NewConnectionPool(opts connector.Options) (connector.ConnectionPool, error) {
	o, ok := opts.(Options)
	if !ok {
		return nil, fmt.Errorf("mongo: NewConnectionPool expects mongo.Options, got %T", opts)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	client, err := mgo.Connect(context.Background(), options.Client().ApplyURI(o.URI))
	if err != nil {
		return nil, ierrors.New(ierrors.Transient, "mongo.NewConnectionPool", err)
	}
	return &pool{client: client, database: o.Database, uri: o.URI, perUser: map[string]*mgo.Client{}}, nil
}

var _ connector.Connector = Connector{}

// pool wraps one *mongo.Client. The driver's client is itself a connection
// pool internally, so Acquire/Release here are bookkeeping only — mirroring
// internal/connector/postgres's pgxpool-backed pool, which has the same
// "hand out thin wrappers over a shared driver pool" shape.
type pool struct {
	client   *mgo.Client
	database string
	uri      string

	mu      sync.Mutex
	perUser map[string]*mgo.Client
}

// Acquire hands out a connection over the pool's own service-credential
// client, unless authCtx carries a JWT: Mongo's SASL PLAIN mechanism against
// the $external auth source lets a bearer token stand in as the password for
// a per-user connection, the same SSO-token-to-remote-DB passthrough
// internal/connector/postgres implements via a dedicated pgx dial. Each
// distinct username gets its own cached *mongo.Client rather than dialing
// fresh on every acquire.
func (p *pool) Acquire(ctx context.Context, authCtx *auth.Context) (connector.Connection, error) {
	if authCtx == nil || authCtx.Username == "" {
		return &conn{client: p.client, db: p.client.Database(p.database), dbName: p.database}, nil
	}
	jwt, ok := authCtx.Detail.(auth.JWTDetail)
	if !ok || jwt.RawToken == "" {
		return &conn{client: p.client, db: p.client.Database(p.database), dbName: p.database}, nil
	}

	client, err := p.acquirePerUser(ctx, authCtx.Username, jwt.RawToken)
	if err != nil {
		return nil, err
	}
	return &conn{client: client, db: client.Database(p.database), dbName: p.database}, nil
}

func (p *pool) acquirePerUser(ctx context.Context, username, token string) (*mgo.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.perUser[username]; ok {
		return c, nil
	}
	cred := options.Credential{
		AuthMechanism: "PLAIN",
		AuthSource:    "$external",
		Username:      username,
		Password:      token,
	}
	client, err := mgo.Connect(ctx, options.Client().ApplyURI(p.uri).SetAuth(cred))
	if err != nil {
		return nil, ierrors.New(ierrors.Auth, "mongo.Acquire", err)
	}
	p.perUser[username] = client
	return client, nil
}

func (p *pool) Release(connector.Connection) {}

func (p *pool) Close() error {
	p.mu.Lock()
	clients := make([]*mgo.Client, 0, len(p.perUser))
	for _, c := range p.perUser {
		clients = append(clients, c)
	}
	p.mu.Unlock()

	err := p.client.Disconnect(context.Background())
	for _, c := range clients {
		if dErr := c.Disconnect(context.Background()); dErr != nil && err == nil {
			err = dErr
		}
	}
	return err
}

type conn struct {
	client *mgo.Client
	db     *mgo.Database
	dbName string
	sess   mgo.Session
}

func (c *conn) EntitySearcher() connector.EntitySearcher   { return &searcher{conn: c} }
func (c *conn) EntityValidator() connector.EntityValidator { return &validator{conn: c} }
func (c *conn) QueryPlanner() connector.QueryPlanner       { return newPlanner() }
func (c *conn) QueryCompiler() connector.QueryCompiler     { return newCompiler(c) }
func (c *conn) TransactionManager() connector.TransactionManager {
	return &txManager{conn: c}
}

func (c *conn) Close() error {
	if c.sess != nil {
		c.sess.EndSession(context.Background())
	}
	return nil
}

// execContext returns ctx wrapped for use inside the active transaction
// session, if any, so every handle's driver call automatically joins it.
func (c *conn) execContext(ctx context.Context) context.Context {
	if c.sess == nil {
		return ctx
	}
	return mgo.NewSessionContext(ctx, c.sess)
}

var (
	_ connector.Connection     = (*conn)(nil)
	_ connector.ConnectionPool = (*pool)(nil)
)
