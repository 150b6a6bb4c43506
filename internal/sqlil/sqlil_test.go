package sqlil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ansilo/internal/data"
	"ansilo/internal/entity"
)

func peopleEntity() *entity.Config {
	return &entity.Config{
		ID:   "people",
		Name: "People",
		Attributes: []entity.Attribute{
			{ID: "id", Type: data.Int32()},
			{ID: "name", Type: data.Utf8String(nil), Nullable: true},
			{ID: "age", Type: data.Int32(), Nullable: true},
		},
	}
}

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	reg, err := entity.NewRegistry(peopleEntity())
	require.NoError(t, err)
	env := NewEnv(reg)
	require.NoError(t, env.WithSource(EntitySource{EntityID: "people", Alias: "p"}))
	return env
}

func TestTypeOfAttributeAndConstant(t *testing.T) {
	env := newTestEnv(t)

	ty, err := TypeOf(Attribute{Alias: "p", AttrID: "name"}, env)
	require.NoError(t, err)
	assert.Equal(t, data.KindUtf8String, ty.Kind)

	ty, err = TypeOf(Constant{Value: data.NewInt64(42)}, env)
	require.NoError(t, err)
	assert.Equal(t, data.KindInt64, ty.Kind)
}

func TestTypeOfUnknownAliasIsFatal(t *testing.T) {
	env := newTestEnv(t)
	_, err := TypeOf(Attribute{Alias: "q", AttrID: "name"}, env)
	require.Error(t, err)
	var typeErr *TypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestTypeOfComparisonIsBoolean(t *testing.T) {
	env := newTestEnv(t)
	e := BinaryOp{
		Left:  Attribute{Alias: "p", AttrID: "age"},
		Kind:  BinaryGreaterThan,
		Right: Constant{Value: data.NewInt32(18)},
	}
	ty, err := TypeOf(e, env)
	require.NoError(t, err)
	assert.Equal(t, data.KindBoolean, ty.Kind)
}

func TestTypeOfArithmeticRequiresNumeric(t *testing.T) {
	env := newTestEnv(t)
	e := BinaryOp{
		Left:  Attribute{Alias: "p", AttrID: "name"},
		Kind:  BinaryAdd,
		Right: Constant{Value: data.NewInt32(1)},
	}
	_, err := TypeOf(e, env)
	require.Error(t, err)
}

func TestTypeOfDeterministic(t *testing.T) {
	env := newTestEnv(t)
	e := BinaryOp{
		Left:  Attribute{Alias: "p", AttrID: "age"},
		Kind:  BinaryAdd,
		Right: Constant{Value: data.NewInt64(1)},
	}
	t1, err1 := TypeOf(e, env)
	t2, err2 := TypeOf(e, env)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, t1.Equal(t2))
}

func TestSelectAddWhereRejectsNonBoolean(t *testing.T) {
	env := newTestEnv(t)
	s := NewSelect(EntitySource{EntityID: "people", Alias: "p"})
	err := s.AddWhere(env, Attribute{Alias: "p", AttrID: "name"})
	require.Error(t, err)
	assert.Empty(t, s.Where)
}

func TestSelectAddWhereAcceptsBoolean(t *testing.T) {
	env := newTestEnv(t)
	s := NewSelect(EntitySource{EntityID: "people", Alias: "p"})
	cond := BinaryOp{
		Left:  Attribute{Alias: "p", AttrID: "id"},
		Kind:  BinaryEqual,
		Right: Constant{Value: data.NewInt32(1)},
	}
	require.NoError(t, s.AddWhere(env, cond))
	assert.Len(t, s.Where, 1)
}

func TestBulkInsertAddRowArityMismatch(t *testing.T) {
	env := newTestEnv(t)
	b := NewBulkInsert(EntitySource{EntityID: "people", Alias: "p"}, []string{"id", "name"})
	err := b.AddRow(env, []Expr{Constant{Value: data.NewInt32(1)}})
	require.Error(t, err)
}

func TestBulkInsertAddRowAccepted(t *testing.T) {
	env := newTestEnv(t)
	b := NewBulkInsert(EntitySource{EntityID: "people", Alias: "p"}, []string{"id", "name"})
	err := b.AddRow(env, []Expr{Constant{Value: data.NewInt32(1)}, Constant{Value: data.NewString("Gary")}})
	require.NoError(t, err)
	assert.Len(t, b.Values, 1)
}

func TestQueryOperationResultAcceptedVsUnsupported(t *testing.T) {
	rows := uint64(10)
	ok := Accepted(OperationCost{Rows: &rows})
	assert.True(t, ok.Ok)
	assert.Equal(t, rows, *ok.Cost.Rows)

	rej := Unsupported("MD5 not pushable on Oracle < 12c")
	assert.False(t, rej.Ok)
	assert.NotEmpty(t, rej.Reason)
}

func TestOperationCostAddPropagatesUnknown(t *testing.T) {
	a := OperationCost{Rows: ptrU64(3)}
	b := OperationCost{}
	sum := a.Add(b)
	assert.Nil(t, sum.Rows)
}

func ptrU64(v uint64) *uint64 { return &v }

func TestExpressionSerialiseRoundTrip(t *testing.T) {
	exprs := []Expr{
		Attribute{Alias: "p", AttrID: "name"},
		Constant{Value: data.NewInt64(-7)},
		Constant{Value: data.NewString("Gary")},
		Constant{Value: data.NewNull(data.Utf8String(nil))},
		Parameter{ID: 1, Type: data.Int32()},
		UnaryOp{Kind: UnaryIsNull, Expr: Attribute{Alias: "p", AttrID: "name"}},
		BinaryOp{
			Left:  Attribute{Alias: "p", AttrID: "age"},
			Kind:  BinaryGreaterOrEqual,
			Right: Constant{Value: data.NewInt32(18)},
		},
		Cast{Expr: Attribute{Alias: "p", AttrID: "age"}, Type: data.Utf8String(nil)},
		FunctionCall{Name: "MD5", Args: []Expr{Attribute{Alias: "p", AttrID: "name"}}},
		AggregateCall{Kind: AggregateCount, Args: []Expr{Attribute{Alias: "p", AttrID: "id"}}},
	}

	for _, e := range exprs {
		var buf bytes.Buffer
		require.NoError(t, Serialise(&buf, e))
		got, err := Deserialise(&buf)
		require.NoError(t, err)
		assert.Equal(t, Pretty(e), Pretty(got))
	}
}

func TestQuerySerialiseRoundTrip(t *testing.T) {
	sel := NewSelect(EntitySource{EntityID: "people", Alias: "p"})
	sel.Cols = append(sel.Cols, SelectColumn{Alias: "n", Expr: Attribute{Alias: "p", AttrID: "name"}})
	sel.Where = append(sel.Where, BinaryOp{
		Left:  Attribute{Alias: "p", AttrID: "id"},
		Kind:  BinaryEqual,
		Right: Parameter{ID: 1, Type: data.Int32()},
	})
	limit := uint64(10)
	sel.RowLimit = &limit
	sel.RowLock = RowLockUpdate

	var buf bytes.Buffer
	require.NoError(t, SerialiseQuery(&buf, sel))
	got, err := DeserialiseQuery(&buf)
	require.NoError(t, err)
	assert.Equal(t, PrettyQuery(sel), PrettyQuery(got))

	ins := NewInsert(EntitySource{EntityID: "people", Alias: "p"})
	ins.Cols = append(ins.Cols, InsertColumn{Attr: "name", Expr: Constant{Value: data.NewString("Gregson")}})
	buf.Reset()
	require.NoError(t, SerialiseQuery(&buf, ins))
	got, err = DeserialiseQuery(&buf)
	require.NoError(t, err)
	assert.Equal(t, PrettyQuery(ins), PrettyQuery(got))

	del := NewDelete(EntitySource{EntityID: "people", Alias: "p"})
	del.Where = append(del.Where, Attribute{Alias: "p", AttrID: "id"})
	buf.Reset()
	require.NoError(t, SerialiseQuery(&buf, del))
	got, err = DeserialiseQuery(&buf)
	require.NoError(t, err)
	assert.Equal(t, PrettyQuery(del), PrettyQuery(got))
}

func TestPrettySelectMatchesQueryLogFormat(t *testing.T) {
	sel := NewSelect(EntitySource{EntityID: "public.t", Alias: "t"})
	sel.Cols = append(sel.Cols, SelectColumn{Expr: Attribute{Alias: "t", AttrID: "name"}})
	sel.Where = append(sel.Where, BinaryOp{
		Left:  Attribute{Alias: "t", AttrID: "id"},
		Kind:  BinaryEqual,
		Right: Parameter{ID: 2, Type: data.Int32()},
	})
	assert.Contains(t, PrettyQuery(sel), "WHERE (t.id = $2)")
}
