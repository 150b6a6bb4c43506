package sqlil

import "ansilo/internal/entity"

// EntitySource names the entity a query clause reads from or writes to,
// qualified by a planner-chosen alias that Attribute expressions reference.
type EntitySource struct {
	EntityID entity.ID
	Alias    string
}

// JoinKind enumerates supported join types.
type JoinKind string

const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
	JoinRight JoinKind = "RIGHT"
	JoinFull  JoinKind = "FULL"
)

// Join attaches another entity source to a Select via a join condition list
// (conjuncts).
type Join struct {
	Kind       JoinKind
	Target     EntitySource
	Conditions []Expr
}

// OrderDirection is Asc or Desc.
type OrderDirection string

const (
	Asc  OrderDirection = "ASC"
	Desc OrderDirection = "DESC"
)

// Ordering is one ORDER BY term.
type Ordering struct {
	Expr      Expr
	Direction OrderDirection
}
