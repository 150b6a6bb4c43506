package sqlil

import (
	"encoding/binary"
	"fmt"
	"io"

	"ansilo/internal/data"
	"ansilo/internal/entity"
)

// Wire tags for the fixed binary schema shared by the expression,
// clause and query node families. Tags are stable across versions of this
// package within one protocol version (see internal/ipcserver/wire.go for
// the outer protocol version byte).
const (
	tagAttribute = iota + 1
	tagConstant
	tagParameter
	tagUnaryOp
	tagBinaryOp
	tagCast
	tagFunctionCall
	tagAggregateCall
)

const (
	tagSelect = iota + 1
	tagInsert
	tagBulkInsert
	tagUpdate
	tagDelete
)

// Serialise encodes e using the fixed binary schema. Deserialise(Serialise(e))
// reproduces an expression tree equal to e for every well-formed e (§8).
func Serialise(w io.Writer, e Expr) error {
	switch n := e.(type) {
	case Attribute:
		if err := writeTag(w, tagAttribute); err != nil {
			return err
		}
		if err := writeString(w, n.Alias); err != nil {
			return err
		}
		return writeString(w, n.AttrID)

	case Constant:
		if err := writeTag(w, tagConstant); err != nil {
			return err
		}
		return serialiseValue(w, n.Value)

	case Parameter:
		if err := writeTag(w, tagParameter); err != nil {
			return err
		}
		if err := writeUint32(w, n.ID); err != nil {
			return err
		}
		return serialiseType(w, n.Type)

	case UnaryOp:
		if err := writeTag(w, tagUnaryOp); err != nil {
			return err
		}
		if err := writeString(w, string(n.Kind)); err != nil {
			return err
		}
		return Serialise(w, n.Expr)

	case BinaryOp:
		if err := writeTag(w, tagBinaryOp); err != nil {
			return err
		}
		if err := Serialise(w, n.Left); err != nil {
			return err
		}
		if err := writeString(w, string(n.Kind)); err != nil {
			return err
		}
		return Serialise(w, n.Right)

	case Cast:
		if err := writeTag(w, tagCast); err != nil {
			return err
		}
		if err := Serialise(w, n.Expr); err != nil {
			return err
		}
		return serialiseType(w, n.Type)

	case FunctionCall:
		if err := writeTag(w, tagFunctionCall); err != nil {
			return err
		}
		if err := writeString(w, n.Name); err != nil {
			return err
		}
		return serialiseExprList(w, n.Args)

	case AggregateCall:
		if err := writeTag(w, tagAggregateCall); err != nil {
			return err
		}
		if err := writeString(w, string(n.Kind)); err != nil {
			return err
		}
		return serialiseExprList(w, n.Args)

	default:
		return fmt.Errorf("sqlil: cannot serialise expression node %T", e)
	}
}

// Deserialise decodes a single expression tree written by Serialise.
func Deserialise(r io.Reader) (Expr, error) {
	tag, err := readTag(r)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagAttribute:
		alias, err := readString(r)
		if err != nil {
			return nil, err
		}
		attr, err := readString(r)
		if err != nil {
			return nil, err
		}
		return Attribute{Alias: alias, AttrID: attr}, nil

	case tagConstant:
		v, err := deserialiseValue(r)
		if err != nil {
			return nil, err
		}
		return Constant{Value: v}, nil

	case tagParameter:
		id, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		t, err := deserialiseType(r)
		if err != nil {
			return nil, err
		}
		return Parameter{ID: id, Type: t}, nil

	case tagUnaryOp:
		kind, err := readString(r)
		if err != nil {
			return nil, err
		}
		inner, err := Deserialise(r)
		if err != nil {
			return nil, err
		}
		return UnaryOp{Kind: UnaryOpKind(kind), Expr: inner}, nil

	case tagBinaryOp:
		left, err := Deserialise(r)
		if err != nil {
			return nil, err
		}
		kind, err := readString(r)
		if err != nil {
			return nil, err
		}
		right, err := Deserialise(r)
		if err != nil {
			return nil, err
		}
		return BinaryOp{Left: left, Kind: BinaryOpKind(kind), Right: right}, nil

	case tagCast:
		inner, err := Deserialise(r)
		if err != nil {
			return nil, err
		}
		t, err := deserialiseType(r)
		if err != nil {
			return nil, err
		}
		return Cast{Expr: inner, Type: t}, nil

	case tagFunctionCall:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		args, err := deserialiseExprList(r)
		if err != nil {
			return nil, err
		}
		return FunctionCall{Name: name, Args: args}, nil

	case tagAggregateCall:
		kind, err := readString(r)
		if err != nil {
			return nil, err
		}
		args, err := deserialiseExprList(r)
		if err != nil {
			return nil, err
		}
		return AggregateCall{Kind: AggregateKind(kind), Args: args}, nil

	default:
		return nil, fmt.Errorf("sqlil: unknown expression tag %d", tag)
	}
}

func serialiseExprList(w io.Writer, list []Expr) error {
	if err := writeUint32(w, uint32(len(list))); err != nil {
		return err
	}
	for _, e := range list {
		if err := Serialise(w, e); err != nil {
			return err
		}
	}
	return nil
}

func deserialiseExprList(r io.Reader) ([]Expr, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]Expr, n)
	for i := range out {
		e, err := Deserialise(r)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// SerialiseQuery/DeserialiseQuery cover the top-level statement kinds.
func SerialiseQuery(w io.Writer, q Query) error {
	switch n := q.(type) {
	case *Select:
		return serialiseSelect(w, n)
	case *Insert:
		return serialiseInsert(w, n)
	case *BulkInsert:
		return serialiseBulkInsert(w, n)
	case *Update:
		return serialiseUpdate(w, n)
	case *Delete:
		return serialiseDelete(w, n)
	default:
		return fmt.Errorf("sqlil: cannot serialise query %T", q)
	}
}

func DeserialiseQuery(r io.Reader) (Query, error) {
	tag, err := readTag(r)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagSelect:
		return deserialiseSelectBody(r)
	case tagInsert:
		return deserialiseInsertBody(r)
	case tagBulkInsert:
		return deserialiseBulkInsertBody(r)
	case tagUpdate:
		return deserialiseUpdateBody(r)
	case tagDelete:
		return deserialiseDeleteBody(r)
	default:
		return nil, fmt.Errorf("sqlil: unknown query tag %d", tag)
	}
}

func serialiseEntitySource(w io.Writer, s EntitySource) error {
	if err := writeString(w, string(s.EntityID)); err != nil {
		return err
	}
	return writeString(w, s.Alias)
}

func deserialiseEntitySource(r io.Reader) (EntitySource, error) {
	id, err := readString(r)
	if err != nil {
		return EntitySource{}, err
	}
	alias, err := readString(r)
	if err != nil {
		return EntitySource{}, err
	}
	return EntitySource{EntityID: entity.ID(id), Alias: alias}, nil
}

func serialiseSelect(w io.Writer, s *Select) error {
	if err := writeTag(w, tagSelect); err != nil {
		return err
	}
	if err := serialiseEntitySource(w, s.From); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(s.Joins))); err != nil {
		return err
	}
	for _, j := range s.Joins {
		if err := writeString(w, string(j.Kind)); err != nil {
			return err
		}
		if err := serialiseEntitySource(w, j.Target); err != nil {
			return err
		}
		if err := serialiseExprList(w, j.Conditions); err != nil {
			return err
		}
	}
	if err := writeUint32(w, uint32(len(s.Cols))); err != nil {
		return err
	}
	for _, c := range s.Cols {
		if err := writeString(w, c.Alias); err != nil {
			return err
		}
		if err := Serialise(w, c.Expr); err != nil {
			return err
		}
	}
	if err := serialiseExprList(w, s.Where); err != nil {
		return err
	}
	if err := serialiseExprList(w, s.GroupBys); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(s.OrderBys))); err != nil {
		return err
	}
	for _, o := range s.OrderBys {
		if err := Serialise(w, o.Expr); err != nil {
			return err
		}
		if err := writeString(w, string(o.Direction)); err != nil {
			return err
		}
	}
	hasLimit := byte(0)
	if s.RowLimit != nil {
		hasLimit = 1
	}
	if err := writeByte(w, hasLimit); err != nil {
		return err
	}
	if s.RowLimit != nil {
		if err := writeUint64(w, *s.RowLimit); err != nil {
			return err
		}
	}
	if err := writeUint64(w, s.RowSkip); err != nil {
		return err
	}
	return writeString(w, string(s.RowLock))
}

func deserialiseSelectBody(r io.Reader) (*Select, error) {
	from, err := deserialiseEntitySource(r)
	if err != nil {
		return nil, err
	}
	s := NewSelect(from)

	nJoins, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nJoins; i++ {
		kind, err := readString(r)
		if err != nil {
			return nil, err
		}
		target, err := deserialiseEntitySource(r)
		if err != nil {
			return nil, err
		}
		conds, err := deserialiseExprList(r)
		if err != nil {
			return nil, err
		}
		s.Joins = append(s.Joins, Join{Kind: JoinKind(kind), Target: target, Conditions: conds})
	}

	nCols, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nCols; i++ {
		alias, err := readString(r)
		if err != nil {
			return nil, err
		}
		e, err := Deserialise(r)
		if err != nil {
			return nil, err
		}
		s.Cols = append(s.Cols, SelectColumn{Alias: alias, Expr: e})
	}

	if s.Where, err = deserialiseExprList(r); err != nil {
		return nil, err
	}
	if s.GroupBys, err = deserialiseExprList(r); err != nil {
		return nil, err
	}

	nOrder, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nOrder; i++ {
		e, err := Deserialise(r)
		if err != nil {
			return nil, err
		}
		dir, err := readString(r)
		if err != nil {
			return nil, err
		}
		s.OrderBys = append(s.OrderBys, Ordering{Expr: e, Direction: OrderDirection(dir)})
	}

	hasLimit, err := readByteVal(r)
	if err != nil {
		return nil, err
	}
	if hasLimit == 1 {
		limit, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		s.RowLimit = &limit
	}
	if s.RowSkip, err = readUint64(r); err != nil {
		return nil, err
	}
	lock, err := readString(r)
	if err != nil {
		return nil, err
	}
	s.RowLock = RowLockKind(lock)
	return s, nil
}

func serialiseInsertCols(w io.Writer, cols []InsertColumn) error {
	if err := writeUint32(w, uint32(len(cols))); err != nil {
		return err
	}
	for _, c := range cols {
		if err := writeString(w, c.Attr); err != nil {
			return err
		}
		if err := Serialise(w, c.Expr); err != nil {
			return err
		}
	}
	return nil
}

func deserialiseInsertCols(r io.Reader) ([]InsertColumn, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]InsertColumn, n)
	for i := range out {
		attr, err := readString(r)
		if err != nil {
			return nil, err
		}
		e, err := Deserialise(r)
		if err != nil {
			return nil, err
		}
		out[i] = InsertColumn{Attr: attr, Expr: e}
	}
	return out, nil
}

func serialiseInsert(w io.Writer, n *Insert) error {
	if err := writeTag(w, tagInsert); err != nil {
		return err
	}
	if err := serialiseEntitySource(w, n.Target); err != nil {
		return err
	}
	return serialiseInsertCols(w, n.Cols)
}

func deserialiseInsertBody(r io.Reader) (*Insert, error) {
	target, err := deserialiseEntitySource(r)
	if err != nil {
		return nil, err
	}
	cols, err := deserialiseInsertCols(r)
	if err != nil {
		return nil, err
	}
	return &Insert{Target: target, Cols: cols}, nil
}

func serialiseBulkInsert(w io.Writer, n *BulkInsert) error {
	if err := writeTag(w, tagBulkInsert); err != nil {
		return err
	}
	if err := serialiseEntitySource(w, n.Target); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(n.Cols))); err != nil {
		return err
	}
	for _, c := range n.Cols {
		if err := writeString(w, c); err != nil {
			return err
		}
	}
	if err := writeUint32(w, uint32(len(n.Values))); err != nil {
		return err
	}
	for _, row := range n.Values {
		if err := serialiseExprList(w, row); err != nil {
			return err
		}
	}
	return nil
}

func deserialiseBulkInsertBody(r io.Reader) (*BulkInsert, error) {
	target, err := deserialiseEntitySource(r)
	if err != nil {
		return nil, err
	}
	nCols, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	cols := make([]string, nCols)
	for i := range cols {
		if cols[i], err = readString(r); err != nil {
			return nil, err
		}
	}
	nRows, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	values := make([][]Expr, nRows)
	for i := range values {
		if values[i], err = deserialiseExprList(r); err != nil {
			return nil, err
		}
	}
	return &BulkInsert{Target: target, Cols: cols, Values: values}, nil
}

func serialiseUpdate(w io.Writer, n *Update) error {
	if err := writeTag(w, tagUpdate); err != nil {
		return err
	}
	if err := serialiseEntitySource(w, n.Target); err != nil {
		return err
	}
	if err := serialiseInsertCols(w, n.Cols); err != nil {
		return err
	}
	return serialiseExprList(w, n.Where)
}

func deserialiseUpdateBody(r io.Reader) (*Update, error) {
	target, err := deserialiseEntitySource(r)
	if err != nil {
		return nil, err
	}
	cols, err := deserialiseInsertCols(r)
	if err != nil {
		return nil, err
	}
	where, err := deserialiseExprList(r)
	if err != nil {
		return nil, err
	}
	return &Update{Target: target, Cols: cols, Where: where}, nil
}

func serialiseDelete(w io.Writer, n *Delete) error {
	if err := writeTag(w, tagDelete); err != nil {
		return err
	}
	if err := serialiseEntitySource(w, n.Target); err != nil {
		return err
	}
	return serialiseExprList(w, n.Where)
}

func deserialiseDeleteBody(r io.Reader) (*Delete, error) {
	target, err := deserialiseEntitySource(r)
	if err != nil {
		return nil, err
	}
	where, err := deserialiseExprList(r)
	if err != nil {
		return nil, err
	}
	return &Delete{Target: target, Where: where}, nil
}

// --- primitive wire helpers ---

func writeTag(w io.Writer, tag int) error {
	return writeByte(w, byte(tag))
}

func readTag(r io.Reader) (int, error) {
	b, err := readByteVal(r)
	return int(b), err
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readByteVal(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// SerialiseType and DeserialiseType expose serialiseType/deserialiseType to
// other packages that need to put a bare data.Type on the wire outside of an
// Expr, e.g. internal/ipcserver's bulk insert column types.
func SerialiseType(w io.Writer, t data.Type) error { return serialiseType(w, t) }

func DeserialiseType(r io.Reader) (data.Type, error) { return deserialiseType(r) }

// serialiseType/deserialiseType encode a data.Type's kind plus whichever
// optional payload fields apply to it.
func serialiseType(w io.Writer, t data.Type) error {
	if err := writeUint32(w, uint32(t.Kind)); err != nil {
		return err
	}
	switch t.Kind {
	case data.KindDecimal:
		if err := writeOptionalUint32(w, t.Precision); err != nil {
			return err
		}
		return writeOptionalUint32(w, t.Scale)
	case data.KindUtf8String:
		return writeOptionalUint32(w, t.MaxLen)
	case data.KindDateTimeWithTZ:
		return writeString(w, t.TZ)
	default:
		return nil
	}
}

func deserialiseType(r io.Reader) (data.Type, error) {
	k, err := readUint32(r)
	if err != nil {
		return data.Type{}, err
	}
	kind := data.Kind(k)
	switch kind {
	case data.KindDecimal:
		p, err := readOptionalUint32(r)
		if err != nil {
			return data.Type{}, err
		}
		s, err := readOptionalUint32(r)
		if err != nil {
			return data.Type{}, err
		}
		return data.Decimal(p, s), nil
	case data.KindUtf8String:
		m, err := readOptionalUint32(r)
		if err != nil {
			return data.Type{}, err
		}
		return data.Utf8String(m), nil
	case data.KindDateTimeWithTZ:
		tz, err := readString(r)
		if err != nil {
			return data.Type{}, err
		}
		return data.DateTimeWithTZ(tz), nil
	default:
		return data.Type{Kind: kind}, nil
	}
}

func writeOptionalUint32(w io.Writer, v *uint32) error {
	has := byte(0)
	if v != nil {
		has = 1
	}
	if err := writeByte(w, has); err != nil {
		return err
	}
	if v != nil {
		return writeUint32(w, *v)
	}
	return nil
}

func readOptionalUint32(r io.Reader) (*uint32, error) {
	has, err := readByteVal(r)
	if err != nil {
		return nil, err
	}
	if has == 0 {
		return nil, nil
	}
	v, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// serialiseValue/deserialiseValue encode a data.Value as its type followed
// by a single DataWriter/DataReader-framed value (reusing the row codec of
// internal/data so there is exactly one wire encoding for a value).
func serialiseValue(w io.Writer, v data.Value) error {
	if err := serialiseType(w, v.Type); err != nil {
		return err
	}
	dw := data.NewWriter(w)
	return dw.WriteRow([]data.Value{v}, []data.Type{v.Type})
}

func deserialiseValue(r io.Reader) (data.Value, error) {
	t, err := deserialiseType(r)
	if err != nil {
		return data.Value{}, err
	}
	dr := data.NewReader(r)
	vals, err := dr.ReadRow([]data.Type{t})
	if err != nil {
		return data.Value{}, err
	}
	return vals[0], nil
}
