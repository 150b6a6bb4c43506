package teradata

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/entity"
	"ansilo/internal/ierrors"
)

// searcher discovers entities via the sidecar's ListColumns RPC, which
// mirrors the original connector's INFORMATION_SCHEMA.COLUMNS-driven
// discovery (ansilo_connectors_jdbc_base's generic JDBC entity searcher)
// without this module needing a JDBC driver of its own.
type searcher struct {
	conn *conn
}

func (s *searcher) Discover(ctx context.Context, filter string) ([]*entity.Config, error) {
	resp, err := callListColumns(ctx, s.conn.cc, s.conn.database, filter)
	if err != nil {
		return nil, err
	}

	tablesField, ok := resp.Fields["tables"]
	if !ok {
		return nil, nil
	}

	var out []*entity.Config
	for _, t := range tablesField.GetListValue().GetValues() {
		s := t.GetStructValue()
		name := s.Fields["table_name"].GetStringValue()

		var attrs []entity.Attribute
		for _, col := range s.Fields["columns"].GetListValue().GetValues() {
			c := col.GetStructValue()
			attrs = append(attrs, entity.Attribute{
				ID:       c.Fields["name"].GetStringValue(),
				Type:     fromTeradataType(c.Fields["type"].GetStringValue()),
				Nullable: c.Fields["nullable"].GetBoolValue(),
			})
		}

		out = append(out, &entity.Config{
			ID:         entity.ID(name),
			Name:       name,
			Attributes: attrs,
			Source: map[string]any{
				"type":          "Table",
				"database_name": s.Fields["database_name"].GetStringValue(),
				"table_name":    name,
			},
		})
	}
	return out, nil
}

type validator struct {
	conn *conn
}

func (v *validator) Validate(ctx context.Context, cfg *entity.Config) error {
	table, _ := cfg.Source["table_name"].(string)
	if table == "" {
		table = string(cfg.ID)
	}
	resp, err := callListColumns(ctx, v.conn.cc, v.conn.database, table)
	if err != nil {
		return err
	}
	tables := resp.Fields["tables"].GetListValue().GetValues()
	if len(tables) == 0 {
		return ierrors.Newf(ierrors.Fatal, "teradata.Validate", "table %q not found", table)
	}
	return nil
}

var (
	_ connector.EntitySearcher  = (*searcher)(nil)
	_ connector.EntityValidator = (*validator)(nil)
)
