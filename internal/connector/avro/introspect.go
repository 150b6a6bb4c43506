package avro

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hamba/avro/v2"
	"github.com/hamba/avro/v2/ocf"

	"ansilo/internal/connector"
	"ansilo/internal/entity"
)

// searcher discovers entities by listing "*.avro" files directly under the
// connector's base directory; each file's embedded OCF header schema
// becomes the entity's attribute list.
type searcher struct {
	conn *conn
}

func (s *searcher) Discover(_ context.Context, filter string) ([]*entity.Config, error) {
	matches, err := filepath.Glob(filepath.Join(s.conn.dir, "*.avro"))
	if err != nil {
		return nil, classifyAvroError("avro.Discover", err)
	}

	var out []*entity.Config
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), ".avro")
		if filter != "" && filter != name {
			continue
		}
		cfg, err := entityFromFile(name, path)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func entityFromFile(name, path string) (*entity.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classifyAvroError("avro.Discover", err)
	}
	defer f.Close()

	dec, err := ocf.NewDecoder(f)
	if err != nil {
		return nil, classifyAvroError("avro.Discover", err)
	}

	rec, ok := dec.Schema().(*avro.RecordSchema)
	if !ok {
		return nil, classifyAvroError("avro.Discover", errNotARecord(path))
	}

	attrs := make([]entity.Attribute, 0, len(rec.Fields()))
	for _, f := range rec.Fields() {
		typ, nullable := fromAvroType(f.Type())
		attrs = append(attrs, entity.Attribute{ID: f.Name(), Type: typ, Nullable: nullable})
	}

	return &entity.Config{
		ID:         entity.ID(name),
		Name:       name,
		Attributes: attrs,
		Source: map[string]any{
			"type": "File",
			"path": path,
		},
	}, nil
}

type errNotARecord string

func (e errNotARecord) Error() string { return "avro file " + string(e) + " has no top-level record schema" }

type validator struct {
	conn *conn
}

func (v *validator) Validate(_ context.Context, cfg *entity.Config) error {
	path := pathFor(v.conn.dir, cfg)
	if _, err := os.Stat(path); err != nil {
		return classifyAvroError("avro.Validate", err)
	}
	return nil
}

// pathFor resolves an entity's backing file, honouring an explicit
// Source["path"] and otherwise falling back to "<dir>/<id>.avro".
func pathFor(dir string, cfg *entity.Config) string {
	if p, ok := cfg.Source["path"].(string); ok && p != "" {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	return filepath.Join(dir, string(cfg.ID)+".avro")
}

var (
	_ connector.EntitySearcher  = (*searcher)(nil)
	_ connector.EntityValidator = (*validator)(nil)
)
