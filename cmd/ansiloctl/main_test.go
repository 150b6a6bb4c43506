package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ansilo/internal/querylog"
)

func TestReadLastEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "query.log")

	var lines string
	for i := 0; i < 5; i++ {
		e := querylog.NewEntry("pg_main", "select 1", nil)
		b, err := json.Marshal(e)
		require.NoError(t, err)
		lines += string(b) + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o600))

	got, err := readLastEntries(path, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "pg_main", got[0].DataSource)
}

func TestReadLastEntriesMissingFile(t *testing.T) {
	_, err := readLastEntries("/nonexistent/path/query.log", 10)
	assert.Error(t, err)
}
