package ipcserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"ansilo/internal/auth"
	"ansilo/internal/connector"
	"ansilo/internal/querylog"
)

// Config carries everything Server needs beyond the connector registry
// itself: the socket to listen on, the session token verifier, the query
// log sink, and the per-session parameter buffer bound of §4.E.
type Config struct {
	SocketPath   string
	Tokens       *auth.TokenIssuer
	QueryLog     querylog.Sink
	MaxParamRows int
	// ConnectTimeout bounds how long AuthDataSource waits on pool.Acquire
	// before failing the session with a Transient error, per
	// nodeconfig.ConnectTimeout. Zero disables the bound.
	ConnectTimeout time.Duration
	Log            *zap.Logger
}

// Server accepts FDW connections on a Unix domain socket and runs one
// session state machine per connection, per §4.E. Sessions are processed
// concurrently up to a worker pool sized cores*2, matching the teacher's
// bounded-parallelism idiom (internal/core's migration runner) applied to
// network fan-out instead of file fan-out.
type Server struct {
	log          *zap.Logger
	tokens       *auth.TokenIssuer
	queryLog     querylog.Sink
	maxParamRows int

	connectTimeout time.Duration

	mu    sync.RWMutex
	pools map[string]connector.ConnectionPool

	sem      *semaphore.Weighted
	listener net.Listener
	wg       sync.WaitGroup
}

// New builds a Server around the given Config. RegisterDataSource must be
// called once per federation data source before Serve is started.
func New(cfg Config) *Server {
	if cfg.MaxParamRows <= 0 {
		cfg.MaxParamRows = 10000
	}
	workers := runtime.NumCPU() * 2
	return &Server{
		log:            cfg.Log,
		tokens:         cfg.Tokens,
		queryLog:       cfg.QueryLog,
		maxParamRows:   cfg.MaxParamRows,
		connectTimeout: cfg.ConnectTimeout,
		pools:          map[string]connector.ConnectionPool{},
		sem:            semaphore.NewWeighted(int64(workers)),
	}
}

// RegisterDataSource makes a connection pool available under dataSourceID,
// the id an AuthDataSource request names to select which remote source a
// session talks to.
func (s *Server) RegisterDataSource(dataSourceID string, pool connector.ConnectionPool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[dataSourceID] = pool
}

// Serve listens on the configured Unix socket and accepts connections until
// ctx is cancelled, removing any stale socket file left behind by a
// previous, uncleanly terminated run first.
func (s *Server) Serve(ctx context.Context, socketPath string) error {
	_ = os.Remove(socketPath)

	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("ipcserver: listen on %s: %w", socketPath, err)
	}
	s.listener = l
	s.log.Info("ipc server listening", zap.String("socket", socketPath))

	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				return fmt.Errorf("ipcserver: accept: %w", err)
			}
		}
		s.wg.Add(1)
		go s.acceptConn(ctx, conn)
	}
}

func (s *Server) acceptConn(ctx context.Context, nc net.Conn) {
	defer s.wg.Done()
	defer nc.Close()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer s.sem.Release(1)

	sess := newSession(s, s.log.Named("session"))
	defer sess.closeSession(ctx)

	for {
		payload, err := readFrame(nc)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				sess.log.Debug("session frame read ended", zap.Error(err))
			}
			return
		}
		req, err := decodeRequest(bytes.NewReader(payload))
		if err != nil {
			sess.log.Warn("malformed request, closing session", zap.Error(err))
			return
		}

		resp, err := sess.handle(ctx, req)
		if err != nil {
			sess.log.Warn("protocol violation, closing session", zap.Error(err))
			return
		}

		var out bytes.Buffer
		if err := encodeResponse(&out, resp); err != nil {
			sess.log.Error("failed to encode response", zap.Error(err))
			return
		}
		if err := writeFrame(nc, out.Bytes()); err != nil {
			sess.log.Debug("session frame write failed", zap.Error(err))
			return
		}

		if sess.state == stateClosed {
			return
		}
	}
}

// record writes one query-log entry, never failing the request when the
// sink itself errors -- losing a log line must not take a session down.
func (s *Server) record(ctx context.Context, dataSource string, q *activeQuery, queryErr error) {
	if s.queryLog == nil {
		return
	}
	entry := querylog.NewEntry(dataSource, fmt.Sprintf("%s %s", q.kind, q.entityID), nil)
	if queryErr != nil {
		entry.Error = queryErr.Error()
	}
	if affected, ok := q.handle.AffectedRows(); ok {
		entry.RowsAffected = &affected
	}
	if err := s.queryLog.Record(ctx, entry); err != nil {
		s.log.Warn("query log record failed", zap.Error(err))
	}
}

// Shutdown waits for in-flight sessions to drain, bounded by the given
// deadline.
func (s *Server) Shutdown(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.log.Warn("shutdown timed out waiting for sessions to drain")
	}
}
