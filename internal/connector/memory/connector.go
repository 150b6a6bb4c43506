package memory

import (
	"context"
	"fmt"

	"ansilo/internal/auth"
	"ansilo/internal/connector"
	"ansilo/internal/entity"
)

func init() {
	connector.Register(&Connector{})
}

// Connector is the in-process reference implementation. Its Options is a
// *Database pre-populated by the caller (tests construct one directly and
// pass it through NewConnectionPool; there is no wire format to parse since
// nothing is remote).
type Connector struct{}

func (Connector) Name() connector.Name { return "memory" }

func (Connector) NewConnectionPool(opts connector.Options) (connector.ConnectionPool, error) {
	db, ok := opts.(*Database)
	if !ok {
		return nil, fmt.Errorf("memory: NewConnectionPool expects *Database options, got %T", opts)
	}
	return &pool{db: db}, nil
}

type pool struct {
	db *Database
}

func (p *pool) Acquire(_ context.Context, _ *auth.Context) (connector.Connection, error) {
	return &conn{db: p.db}, nil
}

func (p *pool) Release(connector.Connection) {}

func (p *pool) Close() error { return nil }

type conn struct {
	db *Database
	tx bool
}

func (c *conn) EntitySearcher() connector.EntitySearcher   { return &searcher{db: c.db} }
func (c *conn) EntityValidator() connector.EntityValidator { return &validator{db: c.db} }
func (c *conn) QueryPlanner() connector.QueryPlanner       { return newPlanner(c.db) }
func (c *conn) QueryCompiler() connector.QueryCompiler     { return newCompiler(c.db) }
func (c *conn) TransactionManager() connector.TransactionManager {
	return &txManager{conn: c}
}
func (c *conn) Close() error { return nil }

type searcher struct{ db *Database }

func (s *searcher) Discover(_ context.Context, filter string) ([]*entity.Config, error) {
	var out []*entity.Config
	for _, t := range s.db.Tables() {
		if filter == "" || filter == string(t.Entity.ID) {
			out = append(out, t.Entity)
		}
	}
	return out, nil
}

type validator struct{ db *Database }

func (v *validator) Validate(_ context.Context, cfg *entity.Config) error {
	if _, ok := v.db.Table(cfg.ID); !ok {
		return fmt.Errorf("memory: entity %q has no backing table", cfg.ID)
	}
	return nil
}

// txManager is a no-op: the in-process store has no rollback log, so Begin
// only flips a flag used by InTransaction and Commit/Rollback are both
// no-ops. Real durability/visibility semantics are exercised by the SQL
// connectors, not this one.
type txManager struct{ conn *conn }

func (t *txManager) Begin(_ context.Context) error {
	t.conn.tx = true
	return nil
}

func (t *txManager) Commit(_ context.Context) error {
	t.conn.tx = false
	return nil
}

func (t *txManager) Rollback(_ context.Context) error {
	t.conn.tx = false
	return nil
}

func (t *txManager) InTransaction() bool { return t.conn.tx }

var (
	_ connector.Connector       = Connector{}
	_ connector.ConnectionPool  = (*pool)(nil)
	_ connector.Connection      = (*conn)(nil)
	_ connector.EntitySearcher  = (*searcher)(nil)
	_ connector.EntityValidator = (*validator)(nil)
	_ connector.TransactionManager = (*txManager)(nil)
)
