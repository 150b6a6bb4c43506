package ipcserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ansilo/internal/auth"
	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/entity"
	"ansilo/internal/ierrors"
	"ansilo/internal/sqlil"
)

// sessionState enumerates the per-session state machine of §4.E.
type sessionState int

const (
	stateIdle sessionState = iota
	stateAuthed
	statePlanning
	statePrepared
	stateExecuting
	stateClosed
)

// activeQuery is one live query within a session, keyed by qid. A session
// may have several queries open for pipelining even though requests within
// the session are processed in strict order.
type activeQuery struct {
	planner   connector.QueryPlanner
	handle    connector.QueryHandle
	resultSet connector.ResultSet
	entityID  string
	kind      string
	explain   []sqlil.ExplainLine
	// batchColTypes holds the column types a "bulk_insert" CreateQuery
	// declared, since the compiled handle's InputStructure is empty for a
	// batch (there is no fixed parameter list to describe) and the wire
	// codec needs the types up front to decode each AddToBatch row.
	batchColTypes []data.Type
}

// session holds all per-connection state: the authenticated identity, the
// acquired remote connection, and every query opened on it.
type session struct {
	server *Server
	log    *zap.Logger

	state      sessionState
	authCtx    *auth.Context
	conn       connector.Connection
	pool       connector.ConnectionPool
	dataSource string

	nextQID uint64
	queries map[uint64]*activeQuery

	inTransaction bool
}

func newSession(s *Server, log *zap.Logger) *session {
	return &session{server: s, log: log, state: stateIdle, queries: map[uint64]*activeQuery{}}
}

// handle dispatches one decoded request and returns the response to send
// back. It never returns a transport-level error for request-level
// failures; those become Response{Tag: tagErrorResp}. A non-nil error
// return means the session itself must close (protocol violation, e.g. an
// operation issued in the wrong state).
func (s *session) handle(ctx context.Context, req Request) (Response, error) {
	switch req.Tag {
	case tagAuthDataSource:
		return s.handleAuth(ctx, req)
	case tagEstimateSize:
		return s.handleEstimateSize(ctx, req)
	case tagDiscover:
		return s.handleDiscover(ctx, req)
	case tagCreateQuery:
		return s.handleCreateQuery(ctx, req)
	case tagApplyWhere:
		return s.handleApplyWhere(ctx, req)
	case tagApplyColumn:
		return s.handleApplyColumn(ctx, req)
	case tagPrepare:
		return s.handlePrepare(ctx, req)
	case tagWriteParams:
		return s.handleWriteParams(ctx, req)
	case tagExecute:
		return s.handleExecute(ctx, req)
	case tagRead:
		return s.handleRead(ctx, req)
	case tagRestart:
		return s.handleRestart(ctx, req)
	case tagBeginTransaction:
		return s.handleBegin(ctx, req)
	case tagCommitTransaction:
		return s.handleCommit(ctx, req)
	case tagRollbackTransaction:
		return s.handleRollback(ctx, req)
	case tagExplain:
		return s.handleExplain(ctx, req)
	case tagAddToBatch:
		return s.handleAddToBatch(ctx, req)
	case tagClose:
		return s.handleClose(ctx, req)
	default:
		return errResponse(req.ID, "Fatal", fmt.Sprintf("unknown request tag %d", req.Tag)), nil
	}
}

func (s *session) handleAuth(ctx context.Context, req Request) (Response, error) {
	if s.state != stateIdle {
		return errResponse(req.ID, "Fatal", "AuthDataSource must be the first message"), nil
	}

	username, provider, err := s.server.tokens.Verify(req.Auth.Token)
	if err != nil {
		s.state = stateClosed
		return errResponse(req.ID, "Auth", "invalid session token"), nil
	}

	pool, ok := s.server.pools[req.Auth.DataSourceID]
	if !ok {
		return errResponse(req.ID, "Fatal", fmt.Sprintf("unknown data source %q", req.Auth.DataSourceID)), nil
	}

	authCtx := &auth.Context{Username: username, Provider: provider}

	acquireCtx := ctx
	if s.server.connectTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, s.server.connectTimeout)
		defer cancel()
	}
	c, err := pool.Acquire(acquireCtx, authCtx)
	if err != nil {
		if errors.Is(acquireCtx.Err(), context.DeadlineExceeded) {
			return errResponse(req.ID, "Transient", "connection acquisition timed out"), nil
		}
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}

	s.authCtx = authCtx
	s.pool = pool
	s.conn = c
	s.dataSource = req.Auth.DataSourceID
	s.state = stateAuthed
	return okResponse(req.ID), nil
}

func (s *session) requireAuthed(req Request) error {
	if s.state == stateIdle {
		return fmt.Errorf("ipcserver: session is not authenticated")
	}
	return nil
}

func (s *session) handleEstimateSize(ctx context.Context, req Request) (Response, error) {
	if err := s.requireAuthed(req); err != nil {
		return errResponse(req.ID, "Fatal", err.Error()), nil
	}
	p := s.conn.QueryPlanner()
	if _, err := p.CreateBaseSelect(ctx, sqlil.EntitySource{EntityID: entity.ID(req.Est.EntityID), Alias: "t"}); err != nil {
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}
	cost, err := p.EstimateCost(ctx)
	if err != nil {
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}
	return costResponse(req.ID, cost), nil
}

func (s *session) handleDiscover(ctx context.Context, req Request) (Response, error) {
	if err := s.requireAuthed(req); err != nil {
		return errResponse(req.ID, "Fatal", err.Error()), nil
	}
	cfgs, err := s.conn.EntitySearcher().Discover(ctx, req.Disc.Filter)
	if err != nil {
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}
	lines := make([]string, len(cfgs))
	for i, c := range cfgs {
		lines[i] = string(c.ID)
	}
	return explainResponse(req.ID, lines), nil
}

func (s *session) handleCreateQuery(ctx context.Context, req Request) (Response, error) {
	if err := s.requireAuthed(req); err != nil {
		return errResponse(req.ID, "Fatal", err.Error()), nil
	}
	p := s.conn.QueryPlanner()
	source := sqlil.EntitySource{EntityID: entity.ID(req.CQ.EntityID), Alias: "t"}

	var (
		res sqlil.QueryOperationResult
		err error
	)
	switch req.CQ.Kind {
	case "select":
		res, err = p.CreateBaseSelect(ctx, source)
	case "insert":
		res, err = p.CreateBaseInsert(ctx, source)
	case "update":
		res, err = p.CreateBaseUpdate(ctx, source)
	case "delete":
		res, err = p.CreateBaseDelete(ctx, source)
	case "bulk_insert":
		res, err = p.CreateBaseBulkInsert(ctx, source, req.CQ.Cols)
	default:
		return errResponse(req.ID, "Fatal", fmt.Sprintf("unknown query kind %q", req.CQ.Kind)), nil
	}
	if err != nil {
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}
	if !res.Ok {
		return errResponse(req.ID, "Fatal", res.Reason), nil
	}

	s.nextQID++
	qid := s.nextQID
	s.queries[qid] = &activeQuery{
		planner:       p,
		entityID:      req.CQ.EntityID,
		kind:          req.CQ.Kind,
		explain:       []sqlil.ExplainLine{sqlil.Explain("create_base_"+req.CQ.Kind, res)},
		batchColTypes: req.CQ.ColTypes,
	}
	s.state = statePlanning
	return costResponseWithQID(req.ID, qid, res.Cost), nil
}

func (s *session) query(req Request) (*activeQuery, error) {
	q, ok := s.queries[req.QID]
	if !ok {
		return nil, fmt.Errorf("ipcserver: unknown query id %d", req.QID)
	}
	return q, nil
}

func (s *session) handleApplyWhere(ctx context.Context, req Request) (Response, error) {
	q, err := s.query(req)
	if err != nil {
		return errResponse(req.ID, "Fatal", err.Error()), nil
	}
	res, err := q.planner.ApplyWhere(ctx, req.Cond)
	if err != nil {
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}
	q.explain = append(q.explain, sqlil.Explain("apply_where", res))
	if !res.Ok {
		return errResponse(req.ID, "Fatal", res.Reason), nil
	}
	return costResponse(req.ID, res.Cost), nil
}

func (s *session) handleApplyColumn(ctx context.Context, req Request) (Response, error) {
	q, err := s.query(req)
	if err != nil {
		return errResponse(req.ID, "Fatal", err.Error()), nil
	}
	res, err := q.planner.ApplyColumn(ctx, *req.Col)
	if err != nil {
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}
	q.explain = append(q.explain, sqlil.Explain("apply_column", res))
	if !res.Ok {
		return errResponse(req.ID, "Fatal", res.Reason), nil
	}
	return costResponse(req.ID, res.Cost), nil
}

func (s *session) handlePrepare(ctx context.Context, req Request) (Response, error) {
	q, err := s.query(req)
	if err != nil {
		return errResponse(req.ID, "Fatal", err.Error()), nil
	}
	handle, err := s.conn.QueryCompiler().Compile(ctx, q.planner)
	if err != nil {
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}
	q.handle = handle
	s.state = statePrepared
	return okResponse(req.ID), nil
}

// handleWriteParams enforces the per-connection parameter buffer bound:
// exceeding maxParamRows returns Fatal(ParamBufferFull) per §4.E.
func (s *session) handleWriteParams(ctx context.Context, req Request) (Response, error) {
	q, err := s.query(req)
	if err != nil {
		return errResponse(req.ID, "Fatal", err.Error()), nil
	}
	if q.handle == nil {
		return errResponse(req.ID, "Fatal", "WriteParams before Prepare"), nil
	}
	if len(req.Rows) > s.server.maxParamRows {
		return errResponse(req.ID, "Fatal", "ParamBufferFull"), nil
	}

	structure := q.handle.InputStructure()
	for _, raw := range req.Rows {
		types := make([]data.Type, len(structure.Params))
		for i, p := range structure.Params {
			types[i] = p.Type
		}
		row, err := data.NewReader(bytes.NewReader(raw)).ReadRow(types)
		if err != nil {
			return errResponse(req.ID, "Data", err.Error()), nil
		}
		if err := q.handle.WriteParams(ctx, row); err != nil {
			return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
		}
	}
	return okResponse(req.ID), nil
}

func (s *session) handleExecute(ctx context.Context, req Request) (Response, error) {
	q, err := s.query(req)
	if err != nil {
		return errResponse(req.ID, "Fatal", err.Error()), nil
	}
	if q.handle == nil {
		return errResponse(req.ID, "Fatal", "Execute before Prepare"), nil
	}
	rs, err := q.handle.Execute(ctx)
	if err != nil {
		s.server.record(ctx, s.dataSource, q, err)
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}
	q.resultSet = rs
	s.state = stateExecuting
	s.server.record(ctx, s.dataSource, q, nil)
	return okResponse(req.ID), nil
}

// handleRead is pull-based: it fills up to req.Max bytes of encoded rows
// and returns, per §4.E's backpressure rule.
func (s *session) handleRead(ctx context.Context, req Request) (Response, error) {
	q, err := s.query(req)
	if err != nil {
		return errResponse(req.ID, "Fatal", err.Error()), nil
	}
	if q.resultSet == nil {
		return errResponse(req.ID, "Fatal", "Read before Execute"), nil
	}

	structure := q.resultSet.RowStructure()
	types := make([]data.Type, len(structure.Columns))
	for i, c := range structure.Columns {
		types[i] = c.Type
	}

	var encoded [][]byte
	var total uint32
	for total < req.Max || len(encoded) == 0 {
		row, err := q.resultSet.Next(ctx)
		if err != nil {
			return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
		}
		if row == nil {
			break
		}
		var buf bytes.Buffer
		if err := data.NewWriter(&buf).WriteRow(row, types); err != nil {
			return errResponse(req.ID, "Data", err.Error()), nil
		}
		encoded = append(encoded, buf.Bytes())
		total += uint32(buf.Len())
		if req.Max == 0 {
			break
		}
	}
	return rowsResponse(req.ID, encoded), nil
}

func (s *session) handleRestart(ctx context.Context, req Request) (Response, error) {
	q, err := s.query(req)
	if err != nil {
		return errResponse(req.ID, "Fatal", err.Error()), nil
	}
	if q.resultSet != nil {
		_ = q.resultSet.Close()
		q.resultSet = nil
	}
	s.state = statePrepared
	return okResponse(req.ID), nil
}

func (s *session) handleBegin(ctx context.Context, req Request) (Response, error) {
	if err := s.requireAuthed(req); err != nil {
		return errResponse(req.ID, "Fatal", err.Error()), nil
	}
	if err := s.conn.TransactionManager().Begin(ctx); err != nil {
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}
	s.inTransaction = true
	return okResponse(req.ID), nil
}

func (s *session) handleCommit(ctx context.Context, req Request) (Response, error) {
	if err := s.conn.TransactionManager().Commit(ctx); err != nil {
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}
	s.inTransaction = false
	return okResponse(req.ID), nil
}

func (s *session) handleRollback(ctx context.Context, req Request) (Response, error) {
	if err := s.conn.TransactionManager().Rollback(ctx); err != nil {
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}
	s.inTransaction = false
	return okResponse(req.ID), nil
}

// handleExplain surfaces the per-operator pushdown reasons accumulated in
// q.explain (one ExplainLine per CreateBase*/ApplyWhere/ApplyColumn call
// this query went through) ahead of the overall cost summary line, giving
// EXPLAIN VERBOSE visibility into which operators pushed and why one didn't.
func (s *session) handleExplain(ctx context.Context, req Request) (Response, error) {
	q, err := s.query(req)
	if err != nil {
		return errResponse(req.ID, "Fatal", err.Error()), nil
	}
	cost, err := q.planner.EstimateCost(ctx)
	if err != nil {
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}

	lines := make([]string, 0, len(q.explain)+1)
	for _, l := range q.explain {
		lines = append(lines, l.String())
	}
	summary := fmt.Sprintf("%s on %s", q.kind, q.entityID)
	if cost.Rows != nil {
		summary = fmt.Sprintf("%s (rows=%d)", summary, *cost.Rows)
	}
	lines = append(lines, summary)
	return explainResponse(req.ID, lines), nil
}

// handleAddToBatch appends one row to a bulk-insert query's pending batch.
// Unlike WriteParams, which binds the fixed parameter slots of a single
// prepared statement, a batch has no Prepare step of its own -- the handle
// compiled from a "bulk_insert" CreateQuery already supports batching, so
// rows flow straight from CreateQuery into AddToBatch.
func (s *session) handleAddToBatch(ctx context.Context, req Request) (Response, error) {
	q, err := s.query(req)
	if err != nil {
		return errResponse(req.ID, "Fatal", err.Error()), nil
	}
	if q.handle == nil {
		handle, err := s.conn.QueryCompiler().Compile(ctx, q.planner)
		if err != nil {
			return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
		}
		q.handle = handle
	}
	if !q.handle.SupportsBatching() {
		return errResponse(req.ID, "Fatal", "AddToBatch on a handle that does not support batching"), nil
	}

	row, err := data.NewReader(bytes.NewReader(req.Rows[0])).ReadRow(q.batchColTypes)
	if err != nil {
		return errResponse(req.ID, "Data", err.Error()), nil
	}
	if err := q.handle.AddToBatch(ctx, row); err != nil {
		return errResponse(req.ID, string(ierrors.As(err)), err.Error()), nil
	}
	return okResponse(req.ID), nil
}

func (s *session) handleClose(ctx context.Context, req Request) (Response, error) {
	if req.QID != 0 {
		if q, ok := s.queries[req.QID]; ok {
			if q.resultSet != nil {
				_ = q.resultSet.Close()
			}
			if q.handle != nil {
				_ = q.handle.Close()
			}
			delete(s.queries, req.QID)
		}
		return okResponse(req.ID), nil
	}
	s.closeSession(ctx)
	return okResponse(req.ID), nil
}

// closeSession tears the whole session down: best-effort rollback of any
// open transaction, closing every query handle, and releasing the
// connection back to its pool (§4.E's resource lifecycle rule).
func (s *session) closeSession(ctx context.Context) {
	if s.inTransaction && s.conn != nil {
		_ = s.conn.TransactionManager().Rollback(ctx)
	}
	for qid, q := range s.queries {
		if q.resultSet != nil {
			_ = q.resultSet.Close()
		}
		if q.handle != nil {
			_ = q.handle.Close()
		}
		delete(s.queries, qid)
	}
	if s.conn != nil && s.pool != nil {
		s.pool.Release(s.conn)
	}
	s.state = stateClosed
}
