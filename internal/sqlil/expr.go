// Package sqlil implements SQLIL: the typed, serialisable algebra of
// relational operations that is the lingua franca between the FDW and
// connectors. Every pushdown decision is expressed as an incremental SQLIL
// mutation with cost feedback (see query.go).
package sqlil

import (
	"fmt"

	"ansilo/internal/data"
)

// Expr is any SQLIL expression node. It is a closed set: the switch in
// TypeOf, Serialise and Pretty must stay exhaustive over every
// implementation in this file.
type Expr interface {
	isExpr()
}

// Attribute references a column of an EntitySource by its entity-relative
// attribute id, qualified by the alias the source was joined under.
type Attribute struct {
	Alias  string
	AttrID string
}

// Constant is a literal value.
type Constant struct {
	Value data.Value
}

// Parameter is a placeholder bound exactly once per query execution. Its ID
// is unique within the owning query (§3 invariant).
type Parameter struct {
	ID   uint32
	Type data.Type
}

// UnaryOpKind enumerates supported unary operators.
type UnaryOpKind string

const (
	UnaryNot          UnaryOpKind = "NOT"
	UnaryNegate       UnaryOpKind = "NEGATE"
	UnaryIsNull       UnaryOpKind = "IS_NULL"
	UnaryIsNotNull    UnaryOpKind = "IS_NOT_NULL"
)

type UnaryOp struct {
	Kind UnaryOpKind
	Expr Expr
}

// BinaryOpKind enumerates supported binary operators.
type BinaryOpKind string

const (
	BinaryAdd            BinaryOpKind = "ADD"
	BinarySubtract       BinaryOpKind = "SUBTRACT"
	BinaryMultiply       BinaryOpKind = "MULTIPLY"
	BinaryDivide         BinaryOpKind = "DIVIDE"
	BinaryModulo         BinaryOpKind = "MODULO"
	BinaryEqual          BinaryOpKind = "EQUAL"
	BinaryNullSafeEqual  BinaryOpKind = "NULL_SAFE_EQUAL"
	BinaryNotEqual       BinaryOpKind = "NOT_EQUAL"
	BinaryGreaterThan    BinaryOpKind = "GT"
	BinaryGreaterOrEqual BinaryOpKind = "GTE"
	BinaryLessThan       BinaryOpKind = "LT"
	BinaryLessOrEqual    BinaryOpKind = "LTE"
	BinaryAnd            BinaryOpKind = "AND"
	BinaryOr             BinaryOpKind = "OR"
	BinaryConcat         BinaryOpKind = "CONCAT"
	BinaryLike           BinaryOpKind = "LIKE"
)

type BinaryOp struct {
	Left  Expr
	Kind  BinaryOpKind
	Right Expr
}

type Cast struct {
	Expr Expr
	Type data.Type
}

// FunctionCall is a scalar function invocation. Functions are identified by
// name only; whether a given connector can push a given name down is a
// planning-time question answered by the connector's QueryPlanner, not by
// SQLIL itself (see AggregateCall's analogous split).
type FunctionCall struct {
	Name string
	Args []Expr
}

// AggregateKind enumerates supported aggregate functions.
type AggregateKind string

const (
	AggregateCount         AggregateKind = "COUNT"
	AggregateCountDistinct AggregateKind = "COUNT_DISTINCT"
	AggregateSum           AggregateKind = "SUM"
	AggregateAvg           AggregateKind = "AVG"
	AggregateMin           AggregateKind = "MIN"
	AggregateMax           AggregateKind = "MAX"
	AggregateStringAgg     AggregateKind = "STRING_AGG"
)

type AggregateCall struct {
	Kind AggregateKind
	Args []Expr
}

func (Attribute) isExpr()     {}
func (Constant) isExpr()      {}
func (Parameter) isExpr()     {}
func (UnaryOp) isExpr()       {}
func (BinaryOp) isExpr()      {}
func (Cast) isExpr()          {}
func (FunctionCall) isExpr()  {}
func (AggregateCall) isExpr() {}

// NewAttribute, NewConstant, etc. are thin constructors kept for symmetry
// with the teacher's core.NewX constructor convention
// (internal/core/schema.go) and to give callers a stable API independent of
// struct literal shape.
func NewAttribute(alias, attrID string) Attribute { return Attribute{Alias: alias, AttrID: attrID} }
func NewConstant(v data.Value) Constant           { return Constant{Value: v} }
func NewParameter(id uint32, t data.Type) Parameter {
	return Parameter{ID: id, Type: t}
}

func (e Attribute) String() string { return fmt.Sprintf("%s.%s", e.Alias, e.AttrID) }
