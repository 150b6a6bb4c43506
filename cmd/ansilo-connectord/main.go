// Package main is the ansilo-connectord host process: the daemon an FDW
// extension talks to over a Unix socket IPC protocol, proxying query plans
// to whichever connectors the node's data source declarations name.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ansilo/internal/auth"
	"ansilo/internal/connector"
	"ansilo/internal/ipcserver"
	"ansilo/internal/nodeconfig"
	"ansilo/internal/obslog"
	"ansilo/internal/querylog"
)

// Every connector package this daemon can open a pool for is imported by
// options.go (to reach its Options struct), which is what actually runs
// each package's self-registering init() -- no separate blank import is
// needed here.

const (
	queryLogMaxBytes = 100 << 20 // 100MiB, rotate beyond this
	shutdownTimeout  = 30 * time.Second
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ansilo-connectord",
		Short: "Federation connector host daemon",
		RunE: func(*cobra.Command, []string) error {
			return runServe()
		},
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe() error {
	node, err := nodeconfig.Load()
	if err != nil {
		return fmt.Errorf("ansilo-connectord: loading node config: %w", err)
	}

	log := obslog.New(obslog.Level(node.LogLevel))
	defer func() { _ = log.Sync() }()

	tokens, err := loadTokenIssuer(node.JWTSigningKeyPath)
	if err != nil {
		return fmt.Errorf("ansilo-connectord: %w", err)
	}

	queryLog, err := newQueryLogSink(node)
	if err != nil {
		return fmt.Errorf("ansilo-connectord: %w", err)
	}
	defer func() {
		if err := queryLog.Close(); err != nil {
			log.Warn("query log close failed", zap.Error(err))
		}
	}()

	server := ipcserver.New(ipcserver.Config{
		SocketPath:     node.SocketPath,
		Tokens:         tokens,
		QueryLog:       queryLog,
		ConnectTimeout: node.ConnectTimeout,
		Log:            obslog.Component(log, "ipc"),
	})

	pools, err := loadDataSources(node.DataSourcesPath)
	if err != nil {
		return fmt.Errorf("ansilo-connectord: %w", err)
	}
	for id, pool := range pools {
		server.RegisterDataSource(id, pool)
	}
	log.Info("data sources registered", zap.Int("count", len(pools)))
	defer func() {
		var closeErr error
		for _, pool := range pools {
			closeErr = multierr.Append(closeErr, pool.Close())
		}
		if closeErr != nil {
			log.Warn("closing data source pools", zap.Error(closeErr))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx, node.SocketPath)
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("ansilo-connectord: serve: %w", err)
		}
		return nil
	}

	cancel()
	server.Shutdown(shutdownTimeout)
	return nil
}

// loadTokenIssuer reads the process-wide session-signing key off disk. The
// key is provisioned out of band (e.g. by the node installer); a daemon
// that minted its own ephemeral key on a missing file would silently
// invalidate every session token issued by a prior run on restart.
func loadTokenIssuer(path string) (*auth.TokenIssuer, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session signing key %s: %w", path, err)
	}
	return auth.NewTokenIssuer(key), nil
}

func newQueryLogSink(node *nodeconfig.Node) (querylog.Sink, error) {
	if node.QueryLogRedisAddr != "" {
		return querylog.NewRedisSink(node.QueryLogRedisAddr, "ansilo:query-log"), nil
	}
	sink, err := querylog.NewFileSink(node.QueryLogPath, queryLogMaxBytes)
	if err != nil {
		return nil, fmt.Errorf("opening query log: %w", err)
	}
	return sink, nil
}

// loadDataSources reads the node's data source declarations and opens one
// connection pool per entry. On a mid-list failure, every pool opened so
// far is closed before returning the error so a bad declaration late in
// the file can't leak earlier connections.
func loadDataSources(path string) (map[string]connector.ConnectionPool, error) {
	decls, err := nodeconfig.LoadDataSources(path)
	if err != nil {
		return nil, fmt.Errorf("loading data sources: %w", err)
	}

	pools := make(map[string]connector.ConnectionPool, len(decls))
	for _, decl := range decls {
		pool, err := openDataSource(decl)
		if err != nil {
			closeErr := err
			for _, p := range pools {
				closeErr = multierr.Append(closeErr, p.Close())
			}
			return nil, fmt.Errorf("data source %q: %w", decl.ID, closeErr)
		}
		pools[decl.ID] = pool
	}
	return pools, nil
}

func openDataSource(decl nodeconfig.DataSourceDecl) (connector.ConnectionPool, error) {
	c, err := connector.Get(connector.Name(decl.Connector))
	if err != nil {
		return nil, err
	}

	opts, err := decodeConnectorOptions(decl.Connector, decl.Options)
	if err != nil {
		return nil, fmt.Errorf("decoding %s options: %w", decl.Connector, err)
	}

	return c.NewConnectionPool(opts)
}
