package postgres

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/entity"
	"ansilo/internal/ierrors"
)

// searcher discovers entities by querying information_schema, the same
// portable catalogue view the teacher's per-dialect introspecters target
// (internal/introspect/postgresql), generalized here to build entity.Config
// values instead of the teacher's core.Database.
type searcher struct {
	conn *pgConn
}

func (s *searcher) Discover(ctx context.Context, filter string) ([]*entity.Config, error) {
	rows, err := s.conn.pgx.Query(ctx, `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND ($2 = '' OR table_name = $2)
		ORDER BY table_name, ordinal_position
	`, s.conn.schema, filter)
	if err != nil {
		return nil, classifyPgError("postgres.Discover", err)
	}
	defer rows.Close()

	byTable := map[string]*entity.Config{}
	var order []string
	for rows.Next() {
		var table, column, pgType, nullable string
		if err := rows.Scan(&table, &column, &pgType, &nullable); err != nil {
			return nil, classifyPgError("postgres.Discover", err)
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
			Type:     fromPgType(pgType),
			Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError("postgres.Discover", err)
	}

	out := make([]*entity.Config, 0, len(order))
	for _, t := range order {
		out = append(out, byTable[t])
	}
	return out, nil
}

// fromPgType maps a Postgres information_schema.data_type string to a
// SQLIL logical type. Unrecognised types fall back to Utf8String, which is
// always a safe (if imprecise) representation for display/round-trip.
func fromPgType(pgType string) data.Type {
	switch pgType {
	case "smallint":
		return data.Int16()
	case "integer":
		return data.Int32()
	case "bigint":
		return data.Int64()
	case "real":
		return data.Float32Type()
	case "double precision":
		return data.Float64Type()
	case "numeric", "decimal":
		return data.Decimal(nil, nil)
	case "boolean":
		return data.Boolean()
	case "bytea":
		return data.Binary()
	case "json", "jsonb":
		return data.JSON()
	case "date":
		return data.Date()
	case "time without time zone", "time with time zone":
		return data.Time()
	case "timestamp without time zone":
		return data.DateTime()
	case "timestamp with time zone":
		return data.DateTimeWithTZ("UTC")
	case "uuid":
		return data.Uuid()
	default:
		return data.Utf8String(nil)
	}
}

type validator struct {
	conn *pgConn
}

func (v *validator) Validate(ctx context.Context, cfg *entity.Config) error {
	table, _ := cfg.Source["table"].(string)
	if table == "" {
		table = string(cfg.ID)
	}
	var exists bool
	err := v.conn.pgx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)
	`, v.conn.schema, table).Scan(&exists)
	if err != nil {
		return classifyPgError("postgres.Validate", err)
	}
	if !exists {
		return ierrors.Newf(ierrors.Fatal, "postgres.Validate", "table %q not found in schema %q", table, v.conn.schema)
	}
	return nil
}

var (
	_ connector.EntitySearcher  = (*searcher)(nil)
	_ connector.EntityValidator = (*validator)(nil)
)

