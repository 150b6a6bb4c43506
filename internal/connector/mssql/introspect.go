package mssql

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/entity"
	"ansilo/internal/ierrors"
)

// searcher discovers entities from INFORMATION_SCHEMA.COLUMNS, the same
// ANSI-standard view internal/connector/postgres's searcher targets; SQL
// Server exposes it identically to Postgres despite the two engines'
// rendering and locking diverging enough to need separate packages.
type searcher struct {
	conn *msConn
}

func (s *searcher) Discover(ctx context.Context, filter string) ([]*entity.Config, error) {
	rows, err := s.conn.sqlConn.QueryContext(ctx, `
		SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, IS_NULLABLE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @p1 AND (@p2 = '' OR TABLE_NAME = @p2)
		ORDER BY TABLE_NAME, ORDINAL_POSITION
	`, s.conn.schema, filter)
	if err != nil {
		return nil, classifyMssqlError("mssql.Discover", err)
	}
	defer rows.Close()

	byTable := map[string]*entity.Config{}
	var order []string
	for rows.Next() {
		var table, column, msType, nullable string
		if err := rows.Scan(&table, &column, &msType, &nullable); err != nil {
			return nil, classifyMssqlError("mssql.Discover", err)
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
			Type:     fromMsType(msType),
			Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classifyMssqlError("mssql.Discover", err)
	}

	out := make([]*entity.Config, 0, len(order))
	for _, t := range order {
		out = append(out, byTable[t])
	}
	return out, nil
}

func fromMsType(msType string) data.Type {
	switch msType {
	case "tinyint":
		return data.UInt8()
	case "smallint":
		return data.Int16()
	case "int":
		return data.Int32()
	case "bigint":
		return data.Int64()
	case "real":
		return data.Float32Type()
	case "float":
		return data.Float64Type()
	case "decimal", "numeric", "money", "smallmoney":
		return data.Decimal(nil, nil)
	case "bit":
		return data.Boolean()
	case "varbinary", "binary", "image":
		return data.Binary()
	case "date":
		return data.Date()
	case "time":
		return data.Time()
	case "datetime", "datetime2", "smalldatetime":
		return data.DateTime()
	case "datetimeoffset":
		return data.DateTimeWithTZ("UTC")
	case "uniqueidentifier":
		return data.Uuid()
	default:
		return data.Utf8String(nil)
	}
}

type validator struct {
	conn *msConn
}

func (v *validator) Validate(ctx context.Context, cfg *entity.Config) error {
	table, _ := cfg.Source["table"].(string)
	if table == "" {
		table = string(cfg.ID)
	}
	var count int
	err := v.conn.sqlConn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
	`, v.conn.schema, table).Scan(&count)
	if err != nil {
		return classifyMssqlError("mssql.Validate", err)
	}
	if count == 0 {
		return ierrors.Newf(ierrors.Fatal, "mssql.Validate", "table %q not found in schema %q", table, v.conn.schema)
	}
	return nil
}

var (
	_ connector.EntitySearcher  = (*searcher)(nil)
	_ connector.EntityValidator = (*validator)(nil)
)
