package sqlil

import "fmt"

// OperationCost is an incremental cost estimate attached to an accepted
// pushdown. All fields are optional: a connector that cannot estimate a
// dimension simply leaves it nil. Composition is monotone (§3): operators
// may only add non-negative cost, enforced by Add.
type OperationCost struct {
	Rows        *uint64
	RowWidth    *uint32
	StartupCost *float64
	TotalCost   *float64
}

// Add returns the monotone sum of c and other: nil fields propagate as nil
// (an unknown cost stays unknown, it is never treated as zero).
func (c OperationCost) Add(other OperationCost) OperationCost {
	return OperationCost{
		Rows:        addUint64(c.Rows, other.Rows),
		RowWidth:    addUint32(c.RowWidth, other.RowWidth),
		StartupCost: addFloat64(c.StartupCost, other.StartupCost),
		TotalCost:   addFloat64(c.TotalCost, other.TotalCost),
	}
}

func addUint64(a, b *uint64) *uint64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a + *b
	return &v
}

func addUint32(a, b *uint32) *uint32 {
	if a == nil || b == nil {
		return nil
	}
	v := *a + *b
	return &v
}

func addFloat64(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a + *b
	return &v
}

// QueryOperationResult is the outcome of proposing one incremental SQLIL
// mutation to a connector. The FDW planner consults this to decide whether
// to commit the mutation (pushdown accepted) or retain the operation for
// local re-evaluation (Unsupported).
type QueryOperationResult struct {
	// Ok is true when the connector accepted the mutation and has
	// permanently updated its draft; Cost is only meaningful when Ok.
	Ok   bool
	Cost OperationCost

	// Reason is a single-line human explanation used by EXPLAIN VERBOSE and
	// the query log when Ok is false, e.g. "operator `MD5` not pushable to
	// Oracle < 12c" (§7).
	Reason string
}

func Accepted(cost OperationCost) QueryOperationResult {
	return QueryOperationResult{Ok: true, Cost: cost}
}

func Unsupported(reason string) QueryOperationResult {
	return QueryOperationResult{Ok: false, Reason: reason}
}

// ExplainLine is one row of an EXPLAIN VERBOSE pushdown report: which
// operator was proposed and whether/why it pushed (supplemental feature,
// see SPEC_FULL.md).
type ExplainLine struct {
	Operator string
	Pushed   bool
	Reason   string
	Cost     OperationCost
}

// Explain builds the ExplainLine for one planner call's verdict, named by
// operator (e.g. "create_base_select", "apply_where").
func Explain(operator string, res QueryOperationResult) ExplainLine {
	return ExplainLine{Operator: operator, Pushed: res.Ok, Reason: res.Reason, Cost: res.Cost}
}

func (l ExplainLine) String() string {
	if !l.Pushed {
		return fmt.Sprintf("%s: not pushed (%s)", l.Operator, l.Reason)
	}
	if l.Cost.Rows != nil {
		return fmt.Sprintf("%s: pushed (rows=%d)", l.Operator, *l.Cost.Rows)
	}
	return fmt.Sprintf("%s: pushed", l.Operator)
}
