package nodeconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/run/ansilo/node.sock", cfg.SocketPath)
	assert.Equal(t, 15*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 10, cfg.MaxPoolSize)
}

func TestLoadHonoursEnvOverride(t *testing.T) {
	t.Setenv("ANSILO_SOCKET_PATH", "/tmp/custom.sock")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.sock", cfg.SocketPath)
}

func TestDecodeEntitySourceTable(t *testing.T) {
	raw := []byte("type: Table\ntable_name: people\nschema_name: public\n")
	opts, err := DecodeEntitySource(raw)
	require.NoError(t, err)
	assert.Equal(t, "Table", opts.Type)

	table, err := DecodeTableSource(raw)
	require.NoError(t, err)
	assert.Equal(t, "people", table.TableName)
	assert.Equal(t, "public", table.SchemaName)
}

func TestDecodeCollectionSource(t *testing.T) {
	raw := []byte("database_name: ansilo\ncollection_name: people\n")
	opts, err := DecodeCollectionSource(raw)
	require.NoError(t, err)
	assert.Equal(t, "ansilo", opts.DatabaseName)
	assert.Equal(t, "people", opts.CollectionName)
}

func TestLoadDataSources(t *testing.T) {
	doc := `
data_sources:
  - id: billing_pg
    connector: postgres
    options:
      dsn: "postgres://localhost/billing"
      schema: public
  - id: legacy_ora
    connector: oracle
    options:
      dsn: "oracle://localhost/legacy"
      schema: LEGACY
`
	path := filepath.Join(t.TempDir(), "datasources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	decls, err := LoadDataSources(path)
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, "billing_pg", decls[0].ID)
	assert.Equal(t, "postgres", decls[0].Connector)
	assert.Equal(t, "public", decls[0].Options["schema"])
}

func TestRemarshalOptions(t *testing.T) {
	raw := map[string]any{"dsn": "postgres://localhost/billing", "schema": "public"}
	var out struct {
		DSN    string `yaml:"dsn"`
		Schema string `yaml:"schema"`
	}
	require.NoError(t, RemarshalOptions(raw, &out))
	assert.Equal(t, "postgres://localhost/billing", out.DSN)
	assert.Equal(t, "public", out.Schema)
}
