// Package nodeconfig loads the node's bootstrap configuration (socket path,
// pool sizing, timeouts, entity registry location) and decodes the
// per-entity/per-connector YAML option documents (the `__config` option
// payloads of the FDW's Postgres-facing surface).
package nodeconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/goccy/go-yaml"
)

// Node is the bootstrap configuration a node process reads at start. Fields
// are populated from struct defaults first, then overridden by environment
// variables, mirroring icinga-go-library/config's layering.
type Node struct {
	SocketPath        string        `env:"ANSILO_SOCKET_PATH" default:"/run/ansilo/node.sock"`
	EntityRegistryDir string        `env:"ANSILO_ENTITY_REGISTRY_DIR" default:"/etc/ansilo/entities"`
	WorkerPoolSize    int           `env:"ANSILO_WORKER_POOL_SIZE" default:"0"`
	MaxPoolSize       int           `env:"ANSILO_MAX_POOL_SIZE" default:"10"`
	ConnectTimeout    time.Duration `env:"ANSILO_CONNECT_TIMEOUT" default:"15s"`
	SessionTimeout    time.Duration `env:"ANSILO_SESSION_TIMEOUT" default:"5m"`
	LogLevel          string        `env:"ANSILO_LOG_LEVEL" default:"info"`
	QueryLogPath      string        `env:"ANSILO_QUERY_LOG_PATH" default:"/var/log/ansilo/query.log"`
	QueryLogRedisAddr string        `env:"ANSILO_QUERY_LOG_REDIS_ADDR" default:""`
	JWTSigningKeyPath string        `env:"ANSILO_JWT_SIGNING_KEY_PATH" default:"/etc/ansilo/session.key"`
	DataSourcesPath   string        `env:"ANSILO_DATASOURCES_PATH" default:"/etc/ansilo/datasources.yaml"`
}

// Load populates a Node from struct-tag defaults and then environment
// overrides. WorkerPoolSize is decoded but not read by anything else: the
// IPC server always sizes its worker pool at cores*2 (see ipcserver.New),
// whatever value is set here.
func Load() (*Node, error) {
	cfg := &Node{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("nodeconfig: applying defaults: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("nodeconfig: parsing environment: %w", err)
	}
	return cfg, nil
}

// EntitySourceOptions is the connector-agnostic envelope of a `__config`
// YAML document; Type selects which concrete shape (TableSourceOptions,
// CollectionSourceOptions, FileSourceOptions) the Extra map decodes into.
type EntitySourceOptions struct {
	Type  string         `yaml:"type"`
	Extra map[string]any `yaml:",inline"`
}

// TableSourceOptions is the relational table entity source shape decoded by
// DecodeTableSource. The connector packages do not decode through it; they
// read entity.Config.Source directly.
type TableSourceOptions struct {
	SchemaName          string            `yaml:"schema_name,omitempty"`
	TableName           string            `yaml:"table_name"`
	AttributeColumnMap  map[string]string `yaml:"attribute_column_map,omitempty"`
}

// CollectionSourceOptions is the Mongo entity source shape.
type CollectionSourceOptions struct {
	DatabaseName   string `yaml:"database_name"`
	CollectionName string `yaml:"collection_name"`
}

// FileSourceOptions is the file-backed entity source shape. The avro
// connector does not decode through it; it reads Source["path"] directly.
type FileSourceOptions struct {
	Path string `yaml:"path"`
}

// DecodeEntitySource parses a raw `__config` YAML document into the
// connector-agnostic envelope.
func DecodeEntitySource(raw []byte) (EntitySourceOptions, error) {
	var opts EntitySourceOptions
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return EntitySourceOptions{}, fmt.Errorf("nodeconfig: decoding entity source: %w", err)
	}
	return opts, nil
}

// DecodeTableSource re-decodes a TableSourceOptions from an
// EntitySourceOptions' raw extra fields.
func DecodeTableSource(raw []byte) (TableSourceOptions, error) {
	var opts TableSourceOptions
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return TableSourceOptions{}, fmt.Errorf("nodeconfig: decoding table source: %w", err)
	}
	return opts, nil
}

// DecodeCollectionSource decodes a Mongo CollectionSourceOptions document.
func DecodeCollectionSource(raw []byte) (CollectionSourceOptions, error) {
	var opts CollectionSourceOptions
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return CollectionSourceOptions{}, fmt.Errorf("nodeconfig: decoding collection source: %w", err)
	}
	return opts, nil
}

// ReadFile is a small convenience wrapper kept here (rather than inlined at
// every call site) since every connector's node wiring reads one of these
// YAML documents off disk identically.
func ReadFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nodeconfig: reading %s: %w", path, err)
	}
	return b, nil
}

// DataSourceDecl is one configured connector instance a node exposes over
// its IPC socket, decoded from the document named by Node.DataSourcesPath.
// Options is left as a raw map rather than a concrete connector.Options
// struct because the host process that loads this file doesn't know which
// connector package's Options shape applies until it has read Connector;
// callers re-decode Options into the right struct with RemarshalOptions.
type DataSourceDecl struct {
	ID        string         `yaml:"id"`
	Connector string         `yaml:"connector"`
	Options   map[string]any `yaml:"options"`
}

type dataSourcesDoc struct {
	DataSources []DataSourceDecl `yaml:"data_sources"`
}

// LoadDataSources parses the data sources document at path.
func LoadDataSources(path string) ([]DataSourceDecl, error) {
	raw, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc dataSourcesDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("nodeconfig: decoding data sources: %w", err)
	}
	return doc.DataSources, nil
}

// RemarshalOptions re-encodes a DataSourceDecl's raw Options map and decodes
// it into a concrete connector Options struct, the same round trip
// DecodeTableSource/DecodeCollectionSource perform on an
// EntitySourceOptions' Extra map.
func RemarshalOptions(raw map[string]any, out any) error {
	b, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("nodeconfig: remarshaling options: %w", err)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("nodeconfig: decoding options into %T: %w", out, err)
	}
	return nil
}
