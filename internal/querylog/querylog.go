// Package querylog implements the remote-query log: an append-only,
// best-effort, lock-guarded sink that must never stall the query path
// (§5). FileSink writes newline-delimited JSON with size-based rotation,
// matching the original implementation's query log; RedisSink streams the
// same entries onto a Redis list for centralised collection.
package querylog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Entry is one recorded query execution.
type Entry struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	DataSource  string    `json:"data_source"`
	Query       string    `json:"query"`
	Params      []string  `json:"params,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	RowsAffected *uint64  `json:"rows_affected,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// NewEntry stamps a fresh entry with a generated id and the current time.
func NewEntry(dataSource, query string, params []string) Entry {
	return Entry{
		ID:         uuid.NewString(),
		Time:       time.Now(),
		DataSource: dataSource,
		Query:      query,
		Params:     params,
	}
}

// Sink records query log entries. Record must be safe to call
// concurrently and must not block the calling query path for long.
// FileSink and RedisSink do not drop entries: each Record returns only after
// its file write or Redis push has completed or failed.
type Sink interface {
	Record(ctx context.Context, e Entry) error
	Close() error
}

// FileSink appends newline-delimited JSON entries to a file, rotating it
// once it exceeds MaxBytes.
type FileSink struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	f        *os.File
	written  int64
}

// NewFileSink opens (creating if necessary) the log file at path, rotating
// once it has grown past maxBytes (0 disables rotation).
func NewFileSink(path string, maxBytes int64) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("querylog: opening %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("querylog: stating %s: %w", path, err)
	}
	return &FileSink{path: path, maxBytes: maxBytes, f: f, written: info.Size()}, nil
}

func (s *FileSink) Record(_ context.Context, e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("querylog: encoding entry: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 && s.written+int64(len(line)) > s.maxBytes {
		if err := s.rotateLocked(); err != nil {
			return err
		}
	}

	n, err := s.f.Write(line)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("querylog: writing entry: %w", err)
	}
	return nil
}

func (s *FileSink) rotateLocked() error {
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("querylog: closing for rotation: %w", err)
	}
	rotated := fmt.Sprintf("%s.%d", s.path, time.Now().UnixNano())
	if err := os.Rename(s.path, rotated); err != nil {
		return fmt.Errorf("querylog: rotating to %s: %w", rotated, err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("querylog: reopening after rotation: %w", err)
	}
	s.f = f
	s.written = 0
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

var _ Sink = (*FileSink)(nil)

// RedisSink pushes entries onto a Redis list, an alternative to FileSink
// for centralised collection across nodes.
type RedisSink struct {
	client *redis.Client
	key    string
}

func NewRedisSink(addr, key string) *RedisSink {
	return &RedisSink{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
	}
}

func (s *RedisSink) Record(ctx context.Context, e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("querylog: encoding entry: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, line).Err(); err != nil {
		return fmt.Errorf("querylog: pushing to redis: %w", err)
	}
	return nil
}

func (s *RedisSink) Close() error { return s.client.Close() }

var _ Sink = (*RedisSink)(nil)
