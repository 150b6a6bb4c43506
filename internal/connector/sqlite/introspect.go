package sqlite

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

// Discover lists tables from sqlite_master and their columns via PRAGMA
// table_info, the only portable way to get column types out of SQLite since
// it has no information_schema.
func (s *searcher) Discover(ctx context.Context, filter string) ([]*entity.Config, error) {
	rows, err := s.conn.sqlConn.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name LIKE ?`,
		likePattern(filter))
	if err != nil {
		return nil, ierrors.New(ierrors.Remote, "sqlite.Discover", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, ierrors.New(ierrors.Remote, "sqlite.Discover", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, ierrors.New(ierrors.Remote, "sqlite.Discover", err)
	}

	out := make([]*entity.Config, 0, len(tables))
	for _, t := range tables {
		cfg, err := s.describeTable(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (s *searcher) describeTable(ctx context.Context, table string) (*entity.Config, error) {
	rows, err := s.conn.sqlConn.QueryContext(ctx, `PRAGMA table_info(`+quoteIdentForPragma(table)+`)`)
	if err != nil {
		return nil, ierrors.New(ierrors.Remote, "sqlite.describeTable", err)
	}
	defer rows.Close()

	var attrs []entity.Attribute
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultVal, &pk); err != nil {
			return nil, ierrors.New(ierrors.Remote, "sqlite.describeTable", err)
		}
		attrs = append(attrs, entity.Attribute{
			ID:       name,
			Type:     fromSqliteType(ctype),
			Nullable: notNull == 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, ierrors.New(ierrors.Remote, "sqlite.describeTable", err)
	}

	return &entity.Config{
		ID:         entity.ID(table),
		Name:       table,
		Attributes: attrs,
	}, nil
}

// fromSqliteType maps SQLite's "type affinity" declarations (it stores no
// strict types per column unless STRICT tables are used) onto SQLIL kinds.
func fromSqliteType(decl string) data.Type {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "INT"):
		return data.Int64()
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return data.Float64Type()
	case strings.Contains(d, "BOOL"):
		return data.Boolean()
	case strings.Contains(d, "BLOB"):
		return data.Binary()
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

// quoteIdentForPragma escapes a double-quote delimited identifier for use
// inside a PRAGMA statement, which does not accept bound parameters for
// table names.
func quoteIdentForPragma(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type validator struct {
	conn *conn
}

func (v *validator) Validate(ctx context.Context, cfg *entity.Config) error {
	var name string
	err := v.conn.sqlConn.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, string(cfg.ID)).Scan(&name)
	if err == sql.ErrNoRows {
		return ierrors.Newf(ierrors.Data, "sqlite.Validate", "table %q does not exist", cfg.ID)
	}
	if err != nil {
		return ierrors.New(ierrors.Remote, "sqlite.Validate", err)
	}
	return nil
}

var (
	_ connector.EntitySearcher  = (*searcher)(nil)
	_ connector.EntityValidator = (*validator)(nil)
)
