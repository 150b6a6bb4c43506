// Package connector defines the nine-capability interface set every data
// source plugs into the FDW through (§4.C), and the process-wide registry
// connectors self-register with at init time -- modelled directly on the
// teacher's dialect.RegisterDialect/GetDialect pair
// (internal/dialect/dialect.go) and introspect.Register
// (internal/introspect/introspect.go).
package connector

import (
	"context"
	"fmt"
	"sync"

	"ansilo/internal/auth"
	"ansilo/internal/data"
	"ansilo/internal/entity"
	"ansilo/internal/sqlil"
)

// Name identifies a connector implementation, e.g. "postgres", "oracle",
// "memory". It is the string a node config's connector.type field names.
type Name string

// Options is the opaque per-connector configuration blob decoded from the
// node's YAML config (see internal/nodeconfig); each connector defines its
// own concrete options struct and type-asserts/decodes into it.
type Options any

// Connector is the top-level capability bundle a data source implements.
// A connector is stateless itself; NewConnectionPool produces the pool whose
// Acquire hands out the stateful Connection that the other eight
// capabilities hang off of.
type Connector interface {
	Name() Name
	NewConnectionPool(opts Options) (ConnectionPool, error)
}

// ConnectionPool hands out Connections and owns their lifecycle. A node
// opens one pool per data source and shares it across all IPC sessions and
// users; there is no separate sub-pool per federation user.
//
// Acquire's authCtx carries the caller's authenticated identity so a
// connector that supports it can acquire (or lazily open) a connection
// scoped to that specific user -- e.g. a remote database role named after
// the federation username, or a bearer token forwarded as the remote
// credential -- rather than a single pool-wide service credential.
// authCtx is nil for IPC paths that don't carry one (none today; reserved
// for future unauthenticated diagnostics); a connector with no per-user
// passthrough of its own just ignores it and serves from its shared pool.
type ConnectionPool interface {
	Acquire(ctx context.Context, authCtx *auth.Context) (Connection, error)
	Release(Connection)
	Close() error
}

// Connection is a single logical connection to the remote source, the
// handle every other per-session capability is obtained from.
type Connection interface {
	EntitySearcher() EntitySearcher
	EntityValidator() EntityValidator
	QueryPlanner() QueryPlanner
	QueryCompiler() QueryCompiler
	TransactionManager() TransactionManager
	Close() error
}

// EntitySearcher discovers entities available through a connection, either
// the full catalogue or filtered by a connector-specific search string
// (e.g. a schema/table glob). Used by `ansiloctl discover` and by the
// internal source's self-describing jobs/job_triggers/service_users
// entities (see SPEC_FULL.md, Supplemental Features, item 1).
type EntitySearcher interface {
	Discover(ctx context.Context, filter string) ([]*entity.Config, error)
}

// EntityValidator checks that a declared entity.Config actually matches
// what the remote source exposes (column names/types, missing table) before
// the config registry accepts it at node start.
type EntityValidator interface {
	Validate(ctx context.Context, cfg *entity.Config) error
}

// QueryPlanner is offered each incremental SQLIL mutation in turn and
// decides whether to accept it into its running draft query. Acceptance is
// stateful: once accepted, the mutation is permanently part of the plan
// (§3); rejection is always stateless and leaves the draft untouched so the
// FDW can safely retry a different mutation next.
//
// Every Apply* method returns (sqlil.QueryOperationResult, error): the
// result carries the pushdown verdict (Ok+cost, or Unsupported+reason); the
// error return is reserved for genuine connector failures unrelated to
// pushability (§4.D Fatal/Transient/Remote), never for "this operator isn't
// pushable" which is Unsupported, not an error.
type QueryPlanner interface {
	// CreateBaseSelect/Insert/Update/Delete start a new draft over the given
	// entity source.
	CreateBaseSelect(ctx context.Context, source sqlil.EntitySource) (sqlil.QueryOperationResult, error)
	CreateBaseInsert(ctx context.Context, target sqlil.EntitySource) (sqlil.QueryOperationResult, error)
	CreateBaseUpdate(ctx context.Context, target sqlil.EntitySource) (sqlil.QueryOperationResult, error)
	CreateBaseDelete(ctx context.Context, target sqlil.EntitySource) (sqlil.QueryOperationResult, error)

	// CreateBaseBulkInsert starts a multi-row insert draft over cols, the
	// same role CreateBaseInsert plays for a single-row one. Rows are
	// supplied later via the compiled QueryHandle's AddToBatch rather than
	// WriteParams, since a batch isn't one fixed set of Parameter slots.
	CreateBaseBulkInsert(ctx context.Context, target sqlil.EntitySource, cols []string) (sqlil.QueryOperationResult, error)

	ApplyColumn(ctx context.Context, col sqlil.SelectColumn) (sqlil.QueryOperationResult, error)
	ApplyWhere(ctx context.Context, cond sqlil.Expr) (sqlil.QueryOperationResult, error)
	ApplyJoin(ctx context.Context, join sqlil.Join) (sqlil.QueryOperationResult, error)
	ApplyGroupBy(ctx context.Context, expr sqlil.Expr) (sqlil.QueryOperationResult, error)
	ApplyOrderBy(ctx context.Context, ordering sqlil.Ordering) (sqlil.QueryOperationResult, error)
	ApplyRowLimit(ctx context.Context, limit uint64) (sqlil.QueryOperationResult, error)
	ApplyRowSkip(ctx context.Context, skip uint64) (sqlil.QueryOperationResult, error)
	ApplyRowLock(ctx context.Context, kind sqlil.RowLockKind) (sqlil.QueryOperationResult, error)

	// EstimateCost returns the current draft's accumulated OperationCost
	// without mutating it, used for EXPLAIN and for the FDW's join-order
	// decisions across multiple connectors.
	EstimateCost(ctx context.Context) (sqlil.OperationCost, error)

	// GetRowIdExprs returns the expression(s) that identify a row of source
	// well enough to target it with a later UPDATE/DELETE, for connectors
	// whose remote source exposes a row identity distinct from any declared
	// attribute (Oracle's ROWID pseudo-column is the motivating case, per
	// GLOSSARY "Row id"). Connectors without one return Unsupported; the FDW
	// falls back to the entity's declared unique/primary attributes.
	GetRowIdExprs(ctx context.Context, source sqlil.EntitySource) ([]sqlil.Expr, sqlil.QueryOperationResult, error)

	// GetInsertMaxBatchSize reports the largest number of rows one
	// CreateBaseBulkInsert draft should accumulate before the FDW flushes it
	// as a separate statement, e.g. to stay under a remote source's
	// statement-size or parameter-count ceiling. Zero means unbounded.
	GetInsertMaxBatchSize(ctx context.Context) (int, error)
}

// QueryCompiler turns an accepted draft (tracked internally by the
// QueryPlanner that produced it) into an executable QueryHandle. Compiling
// is the point at which a connector translates SQLIL into its native query
// representation (a SQL string + bind positions for relational connectors,
// a filter document for Mongo, and so on).
type QueryCompiler interface {
	Compile(ctx context.Context, planner QueryPlanner) (QueryHandle, error)
}

// QueryHandle is a compiled, not-yet-executed query bound to its
// connection. InputStructure lists the parameters the query expects, and
// WriteParams binds one row of values in that order before Execute,
// matching the streaming write-then-execute protocol of §4.E's
// Prepared/Executing IPC states.
type QueryHandle interface {
	InputStructure() data.QueryInputStructure
	WriteParams(ctx context.Context, row []data.Value) error
	Execute(ctx context.Context) (ResultSet, error)
	AffectedRows() (uint64, bool)
	Close() error

	// SupportsBatching reports whether AddToBatch may be called on this
	// handle, true only for handles compiled from a CreateBaseBulkInsert
	// draft.
	SupportsBatching() bool
	// AddToBatch appends one row to a bulk-insert handle's pending batch,
	// flushed as a single multi-row statement on Execute. Calling it on a
	// handle that reports SupportsBatching false is a Fatal error.
	AddToBatch(ctx context.Context, row []data.Value) error
}

// ResultSet streams rows back from an executed QueryHandle. RowStructure is
// fixed for the lifetime of the result set; Next returns a nil row (with nil
// error) at normal end of stream.
type ResultSet interface {
	RowStructure() data.RowStructure
	Next(ctx context.Context) ([]data.Value, error)
	Close() error
}

// TransactionManager exposes the remote source's native transaction
// control, used for both single-source transactions and as the
// per-participant leg of the FDW's best-effort multi-source commit
// sequence (§9 Open Question: multi-source 2PC -- decided against; see
// DESIGN.md).
type TransactionManager interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	InTransaction() bool
}

var (
	mu       sync.RWMutex
	registry = make(map[Name]Connector)
)

// Register adds a connector implementation to the process-wide registry.
// Called from each connector package's init(), mirroring
// introspect.Register's self-registration idiom. Panics on duplicate
// registration since that only happens from a programming mistake (two
// packages claiming the same Name), never from user input.
func Register(c Connector) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[c.Name()]; dup {
		panic(fmt.Sprintf("connector: %q registered more than once", c.Name()))
	}
	registry[c.Name()] = c
}

// Get looks up a registered connector by name, as used when a node config's
// connector.type field is resolved at node start.
func Get(name Name) (Connector, error) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("connector: %q is not registered", name)
	}
	return c, nil
}

// Names returns every registered connector name.
func Names() []Name {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Name, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	return out
}
