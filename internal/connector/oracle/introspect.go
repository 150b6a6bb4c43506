package oracle

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/entity"
	"ansilo/internal/ierrors"
)

// searcher discovers entities from ALL_TAB_COLUMNS, the catalog view that
// (unlike USER_TAB_COLUMNS) lets a connection with the right grants read a
// schema other than the one it authenticated as -- the same
// other-owner-aware discovery internal/connector/postgres's searcher gets
// for free from information_schema's table_schema column.
type searcher struct {
	conn *oraConn
}

func (s *searcher) Discover(ctx context.Context, filter string) ([]*entity.Config, error) {
	rows, err := s.conn.sqlConn.QueryContext(ctx, `
		SELECT table_name, column_name, data_type, nullable, data_precision, data_scale
		FROM all_tab_columns
		WHERE owner = :1 AND (:2 = '' OR table_name = :2)
		ORDER BY table_name, column_id
	`, s.conn.schema, filter)
	if err != nil {
		return nil, classifyOraError("oracle.Discover", err)
	}
	defer rows.Close()

	byTable := map[string]*entity.Config{}
	var order []string
	for rows.Next() {
		var (
			table, column, oraType, nullable string
			precision, scale                 *int64
		)
		if err := rows.Scan(&table, &column, &oraType, &nullable, &precision, &scale); err != nil {
			return nil, classifyOraError("oracle.Discover", err)
		}
		cfg, ok := byTable[table]
		if !ok {
			cfg = &entity.Config{ID: entity.ID(table), Name: table, Source: map[string]any{
				"schema": s.conn.schema,
				"table":  table,
			}}
			byTable[table] = cfg
			order = append(order, table)
		}
		cfg.Attributes = append(cfg.Attributes, entity.Attribute{
			ID:       column,
			Type:     fromOraType(oraType, precision, scale),
			Nullable: nullable == "Y",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classifyOraError("oracle.Discover", err)
	}

	out := make([]*entity.Config, 0, len(order))
	for _, t := range order {
		out = append(out, byTable[t])
	}
	return out, nil
}

// fromOraType maps an ALL_TAB_COLUMNS.data_type string to a SQLIL logical
// type. Unrecognised types fall back to Utf8String, a safe if imprecise
// round-trip representation.
func fromOraType(oraType string, precision, scale *int64) data.Type {
	switch oraType {
	case "NUMBER":
		if scale != nil && *scale == 0 {
			if precision != nil {
				p := uint32(*precision)
				sc := uint32(0)
				return data.Decimal(&p, &sc)
			}
			return data.Int64()
		}
		var p, sc *uint32
		if precision != nil {
			v := uint32(*precision)
			p = &v
		}
		if scale != nil {
			v := uint32(*scale)
			sc = &v
		}
		return data.Decimal(p, sc)
	case "FLOAT", "BINARY_FLOAT":
		return data.Float32Type()
	case "BINARY_DOUBLE":
		return data.Float64Type()
	case "CHAR", "VARCHAR2", "NVARCHAR2", "NCHAR", "LONG":
		return data.Utf8String(nil)
	case "CLOB", "NCLOB":
		return data.Utf8String(nil)
	case "BLOB", "RAW", "LONG RAW":
		return data.Binary()
	case "DATE":
		return data.DateTime()
	case "TIMESTAMP":
		return data.DateTime()
	case "TIMESTAMP WITH TIME ZONE", "TIMESTAMP WITH LOCAL TIME ZONE":
		return data.DateTimeWithTZ("UTC")
	default:
		return data.Utf8String(nil)
	}
}

type validator struct {
	conn *oraConn
}

func (v *validator) Validate(ctx context.Context, cfg *entity.Config) error {
	table, _ := cfg.Source["table"].(string)
	if table == "" {
		table = string(cfg.ID)
	}
	var count int
	err := v.conn.sqlConn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM all_tables WHERE owner = :1 AND table_name = :2
	`, v.conn.schema, table).Scan(&count)
	if err != nil {
		return classifyOraError("oracle.Validate", err)
	}
	if count == 0 {
		return ierrors.Newf(ierrors.Fatal, "oracle.Validate", "table %q not found in schema %q", table, v.conn.schema)
	}
	return nil
}

var (
	_ connector.EntitySearcher  = (*searcher)(nil)
	_ connector.EntityValidator = (*validator)(nil)
)
