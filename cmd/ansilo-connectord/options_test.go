package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ansilo/internal/connector/postgres"
	"ansilo/internal/connector/sqlite"
)

func TestDecodeConnectorOptionsPostgres(t *testing.T) {
	opts, err := decodeConnectorOptions("postgres", map[string]any{
		"dsn":    "postgres://localhost/app",
		"schema": "public",
	})
	require.NoError(t, err)
	assert.Equal(t, postgres.Options{DSN: "postgres://localhost/app", Schema: "public"}, opts)
}

func TestDecodeConnectorOptionsSQLite(t *testing.T) {
	opts, err := decodeConnectorOptions("sqlite", map[string]any{"path": "/var/lib/ansilo/app.db"})
	require.NoError(t, err)
	assert.Equal(t, sqlite.Options{Path: "/var/lib/ansilo/app.db"}, opts)
}

func TestDecodeConnectorOptionsUnknown(t *testing.T) {
	_, err := decodeConnectorOptions("not-a-connector", nil)
	assert.Error(t, err)
}
