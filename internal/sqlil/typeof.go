package sqlil

import (
	"fmt"

	"ansilo/internal/data"
	"ansilo/internal/entity"
)

// Env is the schema environment every expression is type-checked against: a
// mapping from the aliases in scope (the query's EntitySource plus any
// joined sources) to the entity each alias refers to, plus the types of any
// parameters already bound in the owning query.
type Env struct {
	entities   *entity.Registry
	aliases    map[string]entity.ID
	paramTypes map[uint32]data.Type
}

func NewEnv(entities *entity.Registry) *Env {
	return &Env{
		entities:   entities,
		aliases:    map[string]entity.ID{},
		paramTypes: map[uint32]data.Type{},
	}
}

// WithSource brings an EntitySource alias into scope for attribute
// resolution. Returns an error if the alias is already bound to a different
// entity, or the referenced entity is not registered.
func (e *Env) WithSource(src EntitySource) error {
	if _, ok := e.entities.Get(src.EntityID); !ok {
		return fmt.Errorf("sqlil: unknown entity %q", src.EntityID)
	}
	if existing, ok := e.aliases[src.Alias]; ok && existing != src.EntityID {
		return fmt.Errorf("sqlil: alias %q already bound to entity %q", src.Alias, existing)
	}
	e.aliases[src.Alias] = src.EntityID
	return nil
}

// BindParameter records the declared type of a Parameter id so later
// references to it type-check without re-supplying the type.
func (e *Env) BindParameter(id uint32, t data.Type) error {
	if existing, ok := e.paramTypes[id]; ok && !existing.Equal(t) {
		return fmt.Errorf("sqlil: parameter %d already bound to type %s, got %s", id, existing, t)
	}
	e.paramTypes[id] = t
	return nil
}

// TypeError is returned by TypeOf when an expression cannot be typed under
// Env; per §4.A this is always Fatal and non-retryable.
type TypeError struct {
	Expr   Expr
	Reason string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("sqlil: type error: %s", e.Reason)
}

// TypeOf performs deterministic type inference for e under env. It is total
// on well-formed inputs: every case of the closed Expr set is handled.
func TypeOf(e Expr, env *Env) (data.Type, error) {
	switch n := e.(type) {
	case Attribute:
		entID, ok := env.aliases[n.Alias]
		if !ok {
			return data.Type{}, &TypeError{Expr: e, Reason: fmt.Sprintf("alias %q not in scope", n.Alias)}
		}
		ent, _ := env.entities.Get(entID)
		attr, ok := ent.FindAttribute(n.AttrID)
		if !ok {
			return data.Type{}, &TypeError{Expr: e, Reason: fmt.Sprintf("entity %q has no attribute %q", entID, n.AttrID)}
		}
		return attr.Type, nil

	case Constant:
		return n.Value.Type, nil

	case Parameter:
		if bound, ok := env.paramTypes[n.ID]; ok && !bound.Equal(n.Type) {
			return data.Type{}, &TypeError{Expr: e, Reason: fmt.Sprintf("parameter %d rebound with differing type", n.ID)}
		}
		return n.Type, nil

	case UnaryOp:
		inner, err := TypeOf(n.Expr, env)
		if err != nil {
			return data.Type{}, err
		}
		switch n.Kind {
		case UnaryNot:
			if inner.Kind != data.KindBoolean {
				return data.Type{}, &TypeError{Expr: e, Reason: "NOT requires a boolean operand"}
			}
			return data.Boolean(), nil
		case UnaryNegate:
			if !inner.IsNumeric() && inner.Kind != data.KindDecimal {
				return data.Type{}, &TypeError{Expr: e, Reason: "unary negate requires a numeric operand"}
			}
			return inner, nil
		case UnaryIsNull, UnaryIsNotNull:
			return data.Boolean(), nil
		default:
			return data.Type{}, &TypeError{Expr: e, Reason: fmt.Sprintf("unknown unary operator %q", n.Kind)}
		}

	case BinaryOp:
		lt, err := TypeOf(n.Left, env)
		if err != nil {
			return data.Type{}, err
		}
		rt, err := TypeOf(n.Right, env)
		if err != nil {
			return data.Type{}, err
		}
		return binaryResultType(e, n.Kind, lt, rt)

	case Cast:
		if _, err := TypeOf(n.Expr, env); err != nil {
			return data.Type{}, err
		}
		return n.Type, nil

	case FunctionCall:
		for _, a := range n.Args {
			if _, err := TypeOf(a, env); err != nil {
				return data.Type{}, err
			}
		}
		// A scalar function's result type is connector/dialect specific;
		// SQLIL only guarantees its arguments type-check. Callers that need
		// the concrete result type consult the connector's compiler.
		return data.Utf8String(nil), nil

	case AggregateCall:
		var argType data.Type
		for i, a := range n.Args {
			t, err := TypeOf(a, env)
			if err != nil {
				return data.Type{}, err
			}
			if i == 0 {
				argType = t
			}
		}
		return aggregateResultType(n.Kind, argType), nil

	default:
		return data.Type{}, &TypeError{Expr: e, Reason: fmt.Sprintf("unhandled expression node %T", e)}
	}
}

func binaryResultType(e Expr, kind BinaryOpKind, lt, rt data.Type) (data.Type, error) {
	switch kind {
	case BinaryEqual, BinaryNullSafeEqual, BinaryNotEqual,
		BinaryGreaterThan, BinaryGreaterOrEqual, BinaryLessThan, BinaryLessOrEqual,
		BinaryAnd, BinaryOr, BinaryLike:
		return data.Boolean(), nil
	case BinaryConcat:
		return data.Utf8String(nil), nil
	case BinaryAdd, BinarySubtract, BinaryMultiply, BinaryDivide, BinaryModulo:
		if !numericOrDecimal(lt) || !numericOrDecimal(rt) {
			return data.Type{}, &TypeError{Expr: e, Reason: fmt.Sprintf("arithmetic requires numeric operands, got %s and %s", lt, rt)}
		}
		if lt.Kind == data.KindDecimal || rt.Kind == data.KindDecimal {
			return data.Decimal(nil, nil), nil
		}
		return widerNumeric(lt, rt), nil
	default:
		return data.Type{}, &TypeError{Expr: e, Reason: fmt.Sprintf("unknown binary operator %q", kind)}
	}
}

func numericOrDecimal(t data.Type) bool {
	return t.IsNumeric() || t.Kind == data.KindDecimal
}

func widerNumeric(a, b data.Type) data.Type {
	if a.Kind == data.KindFloat64 || b.Kind == data.KindFloat64 {
		return data.Float64Type()
	}
	if a.Kind == data.KindFloat32 || b.Kind == data.KindFloat32 {
		return data.Float32Type()
	}
	if rank(a.Kind) >= rank(b.Kind) {
		return a
	}
	return b
}

func rank(k data.Kind) int {
	switch k {
	case data.KindInt8, data.KindUInt8:
		return 1
	case data.KindInt16, data.KindUInt16:
		return 2
	case data.KindInt32, data.KindUInt32:
		return 3
	case data.KindInt64, data.KindUInt64:
		return 4
	default:
		return 0
	}
}

func aggregateResultType(kind AggregateKind, argType data.Type) data.Type {
	switch kind {
	case AggregateCount, AggregateCountDistinct:
		return data.Int64()
	case AggregateStringAgg:
		return data.Utf8String(nil)
	case AggregateSum, AggregateAvg:
		if argType.Kind == data.KindDecimal {
			return data.Decimal(nil, nil)
		}
		return data.Float64Type()
	default: // Min/Max preserve the argument's type
		return argType
	}
}
