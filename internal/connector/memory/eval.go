package memory

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

// binding maps the alias a row's source was joined under to the row's
// values, resolved against that alias's Table.Entity attribute order. A
// plain select only ever has one alias bound; joins (not yet implemented by
// this connector, see planner.go) would extend this map.
type binding struct {
	alias string
	table *Table
	row   *Row
}

func (b binding) resolve(attr sqlil.Attribute) (data.Value, error) {
	if attr.Alias != b.alias {
		return data.Value{}, fmt.Errorf("memory: unknown alias %q", attr.Alias)
	}
	idx, err := b.table.columnIndex(attr.AttrID)
	if err != nil {
		return data.Value{}, err
	}
	return b.row.Values[idx], nil
}

// eval evaluates a SQLIL expression against a single-row binding. It covers
// every Expr kind except AggregateCall, which it rejects with an error.
func eval(e sqlil.Expr, b binding, params []data.Value) (data.Value, error) {
	switch n := e.(type) {
	case sqlil.Attribute:
		return b.resolve(n)

	case sqlil.Constant:
		return n.Value, nil

	case sqlil.Parameter:
		if int(n.ID) >= len(params) {
			return data.Value{}, fmt.Errorf("memory: parameter %d not bound", n.ID)
		}
		return params[n.ID], nil

	case sqlil.UnaryOp:
		inner, err := eval(n.Expr, b, params)
		if err != nil {
			return data.Value{}, err
		}
		switch n.Kind {
		case sqlil.UnaryIsNull:
			return data.NewBoolean(inner.IsNull), nil
		case sqlil.UnaryIsNotNull:
			return data.NewBoolean(!inner.IsNull), nil
		case sqlil.UnaryNot:
			if inner.IsNull {
				return data.NewNull(data.Boolean()), nil
			}
			return data.NewBoolean(!inner.Bool()), nil
		case sqlil.UnaryNegate:
			return negate(inner)
		default:
			return data.Value{}, fmt.Errorf("memory: unsupported unary operator %q", n.Kind)
		}

	case sqlil.BinaryOp:
		return evalBinary(n, b, params)

	case sqlil.Cast:
		inner, err := eval(n.Expr, b, params)
		if err != nil {
			return data.Value{}, err
		}
		return inner.Cast(n.Type)

	case sqlil.FunctionCall:
		return evalFunction(n, b, params)

	default:
		return data.Value{}, fmt.Errorf("memory: unsupported expression %T (aggregates require a pushdown-capable connector)", e)
	}
}

func negate(v data.Value) (data.Value, error) {
	if v.IsNull {
		return v, nil
	}
	switch {
	case v.Type.IsInteger():
		return data.NewInt64(-v.Int()), nil
	case v.Type.Kind == data.KindFloat32, v.Type.Kind == data.KindFloat64:
		return data.NewFloat64(-v.Float()), nil
	default:
		return data.Value{}, fmt.Errorf("memory: cannot negate value of type %s", v.Type)
	}
}

func evalBinary(n sqlil.BinaryOp, b binding, params []data.Value) (data.Value, error) {
	left, err := eval(n.Left, b, params)
	if err != nil {
		return data.Value{}, err
	}

	if n.Kind == sqlil.BinaryAnd || n.Kind == sqlil.BinaryOr {
		// Short-circuit consistent with three-valued SQL boolean logic.
		if n.Kind == sqlil.BinaryAnd && !left.IsNull && !left.Bool() {
			return data.NewBoolean(false), nil
		}
		if n.Kind == sqlil.BinaryOr && !left.IsNull && left.Bool() {
			return data.NewBoolean(true), nil
		}
	}

	right, err := eval(n.Right, b, params)
	if err != nil {
		return data.Value{}, err
	}

	switch n.Kind {
	case sqlil.BinaryNullSafeEqual:
		return data.NewBoolean(left.NullSafeEqual(right)), nil
	case sqlil.BinaryAnd:
		if left.IsNull || right.IsNull {
			return data.NewNull(data.Boolean()), nil
		}
		return data.NewBoolean(left.Bool() && right.Bool()), nil
	case sqlil.BinaryOr:
		if left.IsNull || right.IsNull {
			return data.NewNull(data.Boolean()), nil
		}
		return data.NewBoolean(left.Bool() || right.Bool()), nil
	}

	if left.IsNull || right.IsNull {
		if isBooleanOp(n.Kind) {
			return data.NewNull(data.Boolean()), nil
		}
		return data.NewNull(left.Type), nil
	}

	switch n.Kind {
	case sqlil.BinaryEqual:
		return data.NewBoolean(left.Equal(right)), nil
	case sqlil.BinaryNotEqual:
		return data.NewBoolean(!left.Equal(right)), nil
	case sqlil.BinaryGreaterThan:
		return data.NewBoolean(compare(left, right) > 0), nil
	case sqlil.BinaryGreaterOrEqual:
		return data.NewBoolean(compare(left, right) >= 0), nil
	case sqlil.BinaryLessThan:
		return data.NewBoolean(compare(left, right) < 0), nil
	case sqlil.BinaryLessOrEqual:
		return data.NewBoolean(compare(left, right) <= 0), nil
	case sqlil.BinaryConcat:
		return data.NewString(left.String() + right.String()), nil
	case sqlil.BinaryLike:
		return data.NewBoolean(matchLike(left.String(), right.String())), nil
	case sqlil.BinaryAdd, sqlil.BinarySubtract, sqlil.BinaryMultiply, sqlil.BinaryDivide, sqlil.BinaryModulo:
		return arithmetic(n.Kind, left, right)
	default:
		return data.Value{}, fmt.Errorf("memory: unsupported binary operator %q", n.Kind)
	}
}

func isBooleanOp(kind sqlil.BinaryOpKind) bool {
	switch kind {
	case sqlil.BinaryEqual, sqlil.BinaryNotEqual, sqlil.BinaryGreaterThan, sqlil.BinaryGreaterOrEqual,
		sqlil.BinaryLessThan, sqlil.BinaryLessOrEqual, sqlil.BinaryLike:
		return true
	default:
		return false
	}
}

func compare(a, b data.Value) int {
	switch {
	case a.Type.IsInteger():
		switch {
		case a.Int() < b.Int():
			return -1
		case a.Int() > b.Int():
			return 1
		default:
			return 0
		}
	case a.Type.Kind == data.KindFloat32, a.Type.Kind == data.KindFloat64:
		switch {
		case a.Float() < b.Float():
			return -1
		case a.Float() > b.Float():
			return 1
		default:
			return 0
		}
	default:
		return strings.Compare(a.String(), b.String())
	}
}

func arithmetic(kind sqlil.BinaryOpKind, a, b data.Value) (data.Value, error) {
	af, bf := numericAsFloat(a), numericAsFloat(b)
	switch kind {
	case sqlil.BinaryAdd:
		return data.NewFloat64(af + bf), nil
	case sqlil.BinarySubtract:
		return data.NewFloat64(af - bf), nil
	case sqlil.BinaryMultiply:
		return data.NewFloat64(af * bf), nil
	case sqlil.BinaryDivide:
		if bf == 0 {
			return data.Value{}, fmt.Errorf("memory: division by zero")
		}
		return data.NewFloat64(af / bf), nil
	case sqlil.BinaryModulo:
		if bf == 0 {
			return data.Value{}, fmt.Errorf("memory: modulo by zero")
		}
		return data.NewFloat64(float64(int64(af) % int64(bf))), nil
	default:
		return data.Value{}, fmt.Errorf("memory: unsupported arithmetic operator %q", kind)
	}
}

func numericAsFloat(v data.Value) float64 {
	if v.Type.IsInteger() {
		return float64(v.Int())
	}
	return v.Float()
}

func matchLike(s, pattern string) bool {
	// Minimal SQL LIKE: % -> any run, _ -> any one char. Sufficient for the
	// scenarios this connector serves in tests; a real SQL LIKE with escape
	// characters is a connector-specific pushdown concern elsewhere.
	var rx strings.Builder
	rx.WriteByte('^')
	for _, c := range pattern {
		switch c {
		case '%':
			rx.WriteString(".*")
		case '_':
			rx.WriteString(".")
		default:
			rx.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	rx.WriteByte('$')
	matched, err := regexp.MatchString(rx.String(), s)
	return err == nil && matched
}

func evalFunction(n sqlil.FunctionCall, b binding, params []data.Value) (data.Value, error) {
	args := make([]data.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := eval(a, b, params)
		if err != nil {
			return data.Value{}, err
		}
		args[i] = v
	}
	switch strings.ToUpper(n.Name) {
	case "UPPER":
		return data.NewString(strings.ToUpper(args[0].String())), nil
	case "LOWER":
		return data.NewString(strings.ToLower(args[0].String())), nil
	case "LENGTH":
		return data.NewInt64(int64(len(args[0].String()))), nil
	default:
		return data.Value{}, fmt.Errorf("memory: unsupported scalar function %q", n.Name)
	}
}

// sortRows orders rows in place by the given SQLIL orderings, evaluated
// against each row's binding.
func sortRows(rows []*Row, alias string, table *Table, orderings []sqlil.Ordering, params []data.Value) error {
	var evalErr error
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range orderings {
			vi, err := eval(o.Expr, binding{alias: alias, table: table, row: rows[i]}, params)
			if err != nil {
				evalErr = err
				return false
			}
			vj, err := eval(o.Expr, binding{alias: alias, table: table, row: rows[j]}, params)
			if err != nil {
				evalErr = err
				return false
			}
			c := compareNullable(vi, vj)
			if c == 0 {
				continue
			}
			if o.Direction == sqlil.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return evalErr
}

func compareNullable(a, b data.Value) int {
	if a.IsNull && b.IsNull {
		return 0
	}
	if a.IsNull {
		return -1
	}
	if b.IsNull {
		return 1
	}
	return compare(a, b)
}
