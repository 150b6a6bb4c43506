package mongo

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/entity"
	"ansilo/internal/ierrors"
)

// searcher discovers entities by listing collections, each exposed as a
// one-attribute entity per the single-JSON-column model (see options.go).
type searcher struct {
	conn *conn
}

func (s *searcher) Discover(ctx context.Context, filter string) ([]*entity.Config, error) {
	names, err := s.conn.db.ListCollectionNames(ctx, map[string]any{})
	if err != nil {
		return nil, classifyMongoError("mongo.Discover", err)
	}

	var out []*entity.Config
	for _, name := range names {
		if filter != "" && filter != name {
			continue
		}
		out = append(out, &entity.Config{
			ID:   entity.ID(name),
			Name: name,
			Attributes: []entity.Attribute{
				{ID: docAttr, Type: data.JSON(), Nullable: false},
			},
			Source: map[string]any{
				"type":            "Collection",
				"database_name":   s.conn.dbName,
				"collection_name": name,
			},
		})
	}
	return out, nil
}

type validator struct {
	conn *conn
}

func (v *validator) Validate(ctx context.Context, cfg *entity.Config) error {
	collection, _ := cfg.Source["collection_name"].(string)
	if collection == "" {
		collection = string(cfg.ID)
	}
	names, err := v.conn.db.ListCollectionNames(ctx, map[string]any{"name": collection})
	if err != nil {
		return classifyMongoError("mongo.Validate", err)
	}
	if len(names) == 0 {
		return ierrors.Newf(ierrors.Fatal, "mongo.Validate", "collection %q not found", collection)
	}
	return nil
}

var (
	_ connector.EntitySearcher  = (*searcher)(nil)
	_ connector.EntityValidator = (*validator)(nil)
)
