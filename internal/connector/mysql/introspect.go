package mysql

import (
	"context"
	"database/sql"
	"strings"

	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/entity"
	"ansilo/internal/ierrors"
)

type searcher struct {
	conn *conn
}

// Discover reads information_schema.columns, the same approach the
// postgres connector's searcher uses, since MySQL (and MariaDB/TiDB) expose
// an equivalent ANSI-ish information_schema.
func (s *searcher) Discover(ctx context.Context, filter string) ([]*entity.Config, error) {
	rows, err := s.conn.sqlxConn.QueryContext(ctx, `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name LIKE ?
		ORDER BY table_name, ordinal_position`, likePattern(filter))
	if err != nil {
		return nil, ierrors.New(ierrors.Remote, "mysql.Discover", err)
	}
	defer rows.Close()

	byTable := map[string][]entity.Attribute{}
	var order []string
	for rows.Next() {
		var table, col, dtype, nullable string
		if err := rows.Scan(&table, &col, &dtype, &nullable); err != nil {
			return nil, ierrors.New(ierrors.Remote, "mysql.Discover", err)
		}
		if _, seen := byTable[table]; !seen {
			order = append(order, table)
		}
		byTable[table] = append(byTable[table], entity.Attribute{
			ID:       col,
			Type:     fromMysqlType(dtype),
			Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, ierrors.New(ierrors.Remote, "mysql.Discover", err)
	}

	out := make([]*entity.Config, 0, len(order))
	for _, t := range order {
		out = append(out, &entity.Config{ID: entity.ID(t), Name: t, Attributes: byTable[t]})
	}
	return out, nil
}

func fromMysqlType(dtype string) data.Type {
	switch strings.ToLower(dtype) {
	case "tinyint":
		return data.Int8()
	case "smallint":
		return data.Int16()
	case "int", "mediumint":
		return data.Int32()
	case "bigint":
		return data.Int64()
	case "float":
		return data.Float32Type()
	case "double":
		return data.Float64Type()
	case "decimal", "numeric":
		return data.Decimal(nil, nil)
	case "tinyint(1)", "bool", "boolean":
		return data.Boolean()
	case "blob", "longblob", "mediumblob", "tinyblob", "varbinary", "binary":
		return data.Binary()
	case "json":
		return data.JSON()
	case "date":
		return data.Date()
	case "time":
		return data.Time()
	case "datetime", "timestamp":
		return data.DateTime()
	default:
		return data.Utf8String(nil)
	}
}

func likePattern(filter string) string {
	if filter == "" {
		return "%"
	}
	return filter
}

type validator struct {
	conn *conn
}

func (v *validator) Validate(ctx context.Context, cfg *entity.Config) error {
	var name string
	err := v.conn.sqlxConn.QueryRowContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`,
		string(cfg.ID)).Scan(&name)
	if err == sql.ErrNoRows {
		return ierrors.Newf(ierrors.Data, "mysql.Validate", "table %q does not exist", cfg.ID)
	}
	if err != nil {
		return ierrors.New(ierrors.Remote, "mysql.Validate", err)
	}
	return nil
}

var (
	_ connector.EntitySearcher  = (*searcher)(nil)
	_ connector.EntityValidator = (*validator)(nil)
)
