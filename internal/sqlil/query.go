package sqlil

// SelectColumn is one projected (alias, expr) pair of a Select.
type SelectColumn struct {
	Alias string
	Expr  Expr
}

// RowLockKind enumerates supported row-locking modes for a Select used as
// the read side of a local-predicate UPDATE/DELETE (§4.C, §5).
type RowLockKind string

const (
	RowLockNone   RowLockKind = "NONE"
	RowLockUpdate RowLockKind = "FOR_UPDATE"
)

// Select is a query tree mirroring the teacher's incremental
// diff/migration construction style (internal/diff, internal/migration):
// a mutable draft built up one accepted pushdown operation at a time.
type Select struct {
	From     EntitySource
	Joins    []Join
	Cols     []SelectColumn
	Where    []Expr
	GroupBys []Expr
	OrderBys []Ordering
	RowLimit *uint64
	RowSkip  uint64
	RowLock  RowLockKind
}

func NewSelect(from EntitySource) *Select {
	return &Select{From: from}
}

type InsertColumn struct {
	Attr string
	Expr Expr
}

// Insert is a single-row insert.
type Insert struct {
	Target EntitySource
	Cols   []InsertColumn
}

func NewInsert(target EntitySource) *Insert {
	return &Insert{Target: target}
}

// BulkInsert inserts many value-tuples against the same ordered attribute
// list, letting a connector batch them into one native statement.
type BulkInsert struct {
	Target EntitySource
	Cols   []string
	Values [][]Expr
}

func NewBulkInsert(target EntitySource, cols []string) *BulkInsert {
	return &BulkInsert{Target: target, Cols: cols}
}

// Update sets columns on rows matching Where.
type Update struct {
	Target EntitySource
	Cols   []InsertColumn
	Where  []Expr
}

func NewUpdate(target EntitySource) *Update {
	return &Update{Target: target}
}

// Delete removes rows matching Where.
type Delete struct {
	Target EntitySource
	Where  []Expr
}

func NewDelete(target EntitySource) *Delete {
	return &Delete{Target: target}
}

// Query is the closed set of top-level SQLIL statements.
type Query interface {
	isQuery()
}

func (*Select) isQuery()     {}
func (*Insert) isQuery()     {}
func (*BulkInsert) isQuery() {}
func (*Update) isQuery()     {}
func (*Delete) isQuery()     {}
