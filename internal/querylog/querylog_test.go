package querylog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkAppendsNDJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "query.log")
	sink, err := NewFileSink(path, 0)
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	require.NoError(t, sink.Record(ctx, NewEntry("pg1", "SELECT 1", nil)))
	require.NoError(t, sink.Record(ctx, NewEntry("pg1", "SELECT 2", nil)))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var e Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &e))
	assert.Equal(t, "SELECT 1", e.Query)
	assert.NotEmpty(t, e.ID)
}

func TestFileSinkRotatesPastMaxBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "query.log")
	sink, err := NewFileSink(path, 10)
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Record(ctx, NewEntry("pg1", "SELECT 1", nil)))
	}

	entries, err := filepath.Glob(filepath.Join(dir, "query.log.*"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestNewEntryStampsIDAndTime(t *testing.T) {
	e := NewEntry("pg1", "SELECT 1", []string{"a"})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Time.IsZero())
	assert.Equal(t, []string{"a"}, e.Params)
}
