package sqlil

import "ansilo/internal/data"

// This file implements the incremental mutators of §4.A:
// select.AddColumn, AddWhere, AddJoin, AddGroupBy, AddOrderBy, SetRowLimit,
// SetRowSkip, and their Insert/Update/Delete analogues.
//
// Division of responsibility: whether an operator is *pushable* to a given
// remote is a connector policy decision made in that connector's
// QueryPlanner (internal/connector), which calls these mutators only after
// deciding to accept. These mutators themselves only enforce the one thing
// SQLIL itself is responsible for: that the mutated draft remains
// well-typed under Env. A type failure here is always Fatal(TypeError),
// never Unsupported (Unsupported is a connector-capability verdict, not a
// typing error) -- hence these return a plain error, and callers wrap the
// success case in whatever QueryOperationResult their own cost model
// produces.

func (s *Select) AddColumn(env *Env, col SelectColumn) error {
	if _, err := TypeOf(col.Expr, env); err != nil {
		return err
	}
	s.Cols = append(s.Cols, col)
	return nil
}

func (s *Select) AddWhere(env *Env, e Expr) error {
	t, err := TypeOf(e, env)
	if err != nil {
		return err
	}
	if t.Kind != data.KindBoolean {
		return &TypeError{Expr: e, Reason: "WHERE clause must be boolean"}
	}
	s.Where = append(s.Where, e)
	return nil
}

func (s *Select) AddJoin(env *Env, j Join) error {
	if err := env.WithSource(j.Target); err != nil {
		return err
	}
	for _, c := range j.Conditions {
		if _, err := TypeOf(c, env); err != nil {
			return err
		}
	}
	s.Joins = append(s.Joins, j)
	return nil
}

func (s *Select) AddGroupBy(env *Env, e Expr) error {
	if _, err := TypeOf(e, env); err != nil {
		return err
	}
	s.GroupBys = append(s.GroupBys, e)
	return nil
}

func (s *Select) AddOrderBy(env *Env, o Ordering) error {
	if _, err := TypeOf(o.Expr, env); err != nil {
		return err
	}
	s.OrderBys = append(s.OrderBys, o)
	return nil
}

func (s *Select) SetRowLimit(limit uint64) {
	s.RowLimit = &limit
}

func (s *Select) SetRowSkip(skip uint64) {
	s.RowSkip = skip
}

func (s *Select) SetRowLock(kind RowLockKind) {
	s.RowLock = kind
}

func (i *Insert) AddColumn(env *Env, col InsertColumn) error {
	if _, err := TypeOf(col.Expr, env); err != nil {
		return err
	}
	i.Cols = append(i.Cols, col)
	return nil
}

func (b *BulkInsert) AddRow(env *Env, row []Expr) error {
	if len(row) != len(b.Cols) {
		return &TypeError{Reason: "bulk insert row arity mismatches declared column list"}
	}
	for _, e := range row {
		if _, err := TypeOf(e, env); err != nil {
			return err
		}
	}
	b.Values = append(b.Values, row)
	return nil
}

func (u *Update) AddColumn(env *Env, col InsertColumn) error {
	if _, err := TypeOf(col.Expr, env); err != nil {
		return err
	}
	u.Cols = append(u.Cols, col)
	return nil
}

func (u *Update) AddWhere(env *Env, e Expr) error {
	if _, err := TypeOf(e, env); err != nil {
		return err
	}
	u.Where = append(u.Where, e)
	return nil
}

func (d *Delete) AddWhere(env *Env, e Expr) error {
	if _, err := TypeOf(e, env); err != nil {
		return err
	}
	d.Where = append(d.Where, e)
	return nil
}
