package ipcserver

import (
	"encoding/binary"
	"fmt"
	"io"

	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

// Message tags. Each request tag has a matching response; responses are
// always tagged with the originating request's id for pipelining (§4.E).
const (
	tagAuthDataSource = iota + 1
	tagEstimateSize
	tagDiscover
	tagCreateQuery
	tagApplyWhere
	tagApplyColumn
	tagPrepare
	tagWriteParams
	tagExecute
	tagRead
	tagRestart
	tagBeginTransaction
	tagCommitTransaction
	tagRollbackTransaction
	tagExplain
	tagClose
	tagAddToBatch
)

const (
	tagOk = iota + 1
	tagErrorResp
	tagRowsResp
	tagCostResp
	tagExplainResp
)

// Request is the closed set of client-to-server IPC messages (§4.E,
// abridged to the operations this implementation exercises end to end;
// the remaining Apply* variants follow ApplyWhere/ApplyColumn's shape and
// are added as the planner surface they drive grows).
type Request struct {
	ID   uint64
	Tag  int
	Auth *AuthDataSource
	Est  *EstimateSize
	Disc *Discover
	CQ   *CreateQuery
	Cond sqlil.Expr
	Col  *sqlil.SelectColumn
	QID  uint64
	Rows [][]byte
	Max  uint32
}

type AuthDataSource struct {
	Token        string
	DataSourceID string
}

type EstimateSize struct {
	EntityID string
}

type Discover struct {
	Filter string
}

type CreateQuery struct {
	EntityID string
	Kind     string // "select" | "insert" | "update" | "delete" | "bulk_insert"
	// Cols and ColTypes name and type the target columns of a "bulk_insert"
	// draft, in order; unused by every other kind, which derive their
	// columns from ApplyColumn/WriteParams instead. ColTypes lets the
	// server decode each AddToBatch row without a Prepare step.
	Cols     []string
	ColTypes []data.Type
}

// Response is the closed set of server-to-client IPC messages.
type Response struct {
	RequestID uint64
	Tag       int
	Err       *ErrorResponse
	Cost      *sqlil.OperationCost
	QID       uint64
	Rows      [][]byte
	Explain   []string
}

type ErrorResponse struct {
	Kind    string
	Message string
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
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
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// encodeRequest and decodeRequest implement the request subset this
// server understands; AuthDataSource, EstimateSize, Discover, CreateQuery,
// Prepare, WriteParams, Execute, Read, Restart, Begin/Commit/Rollback,
// Close carry no or scalar fields so their wire shape is direct; ApplyWhere
// reuses sqlil.Serialise for its condition expression.
func encodeRequest(w io.Writer, req Request) error {
	if err := writeUint64(w, req.ID); err != nil {
		return fmt.Errorf("ipcserver: encoding request id: %w", err)
	}
	if err := writeUint32(w, uint32(req.Tag)); err != nil {
		return fmt.Errorf("ipcserver: encoding request tag: %w", err)
	}
	switch req.Tag {
	case tagAuthDataSource:
		if err := writeString(w, req.Auth.Token); err != nil {
			return err
		}
		return writeString(w, req.Auth.DataSourceID)
	case tagEstimateSize:
		return writeString(w, req.Est.EntityID)
	case tagDiscover:
		return writeString(w, req.Disc.Filter)
	case tagCreateQuery:
		if err := writeString(w, req.CQ.EntityID); err != nil {
			return err
		}
		if err := writeString(w, req.CQ.Kind); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(req.CQ.Cols))); err != nil {
			return err
		}
		for _, col := range req.CQ.Cols {
			if err := writeString(w, col); err != nil {
				return err
			}
		}
		if err := writeUint32(w, uint32(len(req.CQ.ColTypes))); err != nil {
			return err
		}
		for _, t := range req.CQ.ColTypes {
			if err := sqlil.SerialiseType(w, t); err != nil {
				return err
			}
		}
		return nil
	case tagApplyWhere:
		return sqlil.Serialise(w, req.Cond)
	case tagApplyColumn:
		if err := writeString(w, req.Col.Alias); err != nil {
			return err
		}
		return sqlil.Serialise(w, req.Col.Expr)
	case tagPrepare, tagExecute, tagRestart, tagBeginTransaction,
		tagCommitTransaction, tagRollbackTransaction, tagExplain, tagClose:
		return writeUint64(w, req.QID)
	case tagWriteParams:
		if err := writeUint64(w, req.QID); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(req.Rows))); err != nil {
			return err
		}
		for _, row := range req.Rows {
			if err := writeUint32(w, uint32(len(row))); err != nil {
				return err
			}
			if _, err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	case tagRead:
		if err := writeUint64(w, req.QID); err != nil {
			return err
		}
		return writeUint32(w, req.Max)
	case tagAddToBatch:
		if err := writeUint64(w, req.QID); err != nil {
			return err
		}
		row := req.Rows[0]
		if err := writeUint32(w, uint32(len(row))); err != nil {
			return err
		}
		_, err := w.Write(row)
		return err
	default:
		return fmt.Errorf("ipcserver: unknown request tag %d", req.Tag)
	}
}

func decodeRequest(r io.Reader) (Request, error) {
	id, err := readUint64(r)
	if err != nil {
		return Request{}, err
	}
	tagU, err := readUint32(r)
	if err != nil {
		return Request{}, err
	}
	tag := int(tagU)
	req := Request{ID: id, Tag: tag}

	switch tag {
	case tagAuthDataSource:
		token, err := readString(r)
		if err != nil {
			return Request{}, err
		}
		dsID, err := readString(r)
		if err != nil {
			return Request{}, err
		}
		req.Auth = &AuthDataSource{Token: token, DataSourceID: dsID}
	case tagEstimateSize:
		entityID, err := readString(r)
		if err != nil {
			return Request{}, err
		}
		req.Est = &EstimateSize{EntityID: entityID}
	case tagDiscover:
		filter, err := readString(r)
		if err != nil {
			return Request{}, err
		}
		req.Disc = &Discover{Filter: filter}
	case tagCreateQuery:
		entityID, err := readString(r)
		if err != nil {
			return Request{}, err
		}
		kind, err := readString(r)
		if err != nil {
			return Request{}, err
		}
		n, err := readUint32(r)
		if err != nil {
			return Request{}, err
		}
		cols := make([]string, n)
		for i := range cols {
			col, err := readString(r)
			if err != nil {
				return Request{}, err
			}
			cols[i] = col
		}
		nt, err := readUint32(r)
		if err != nil {
			return Request{}, err
		}
		colTypes := make([]data.Type, nt)
		for i := range colTypes {
			t, err := sqlil.DeserialiseType(r)
			if err != nil {
				return Request{}, err
			}
			colTypes[i] = t
		}
		req.CQ = &CreateQuery{EntityID: entityID, Kind: kind, Cols: cols, ColTypes: colTypes}
	case tagApplyWhere:
		cond, err := sqlil.Deserialise(r)
		if err != nil {
			return Request{}, err
		}
		req.Cond = cond
	case tagApplyColumn:
		alias, err := readString(r)
		if err != nil {
			return Request{}, err
		}
		expr, err := sqlil.Deserialise(r)
		if err != nil {
			return Request{}, err
		}
		req.Col = &sqlil.SelectColumn{Alias: alias, Expr: expr}
	case tagPrepare, tagExecute, tagRestart, tagBeginTransaction,
		tagCommitTransaction, tagRollbackTransaction, tagExplain, tagClose:
		qid, err := readUint64(r)
		if err != nil {
			return Request{}, err
		}
		req.QID = qid
	case tagWriteParams:
		qid, err := readUint64(r)
		if err != nil {
			return Request{}, err
		}
		req.QID = qid
		n, err := readUint32(r)
		if err != nil {
			return Request{}, err
		}
		rows := make([][]byte, n)
		for i := range rows {
			l, err := readUint32(r)
			if err != nil {
				return Request{}, err
			}
			buf := make([]byte, l)
			if _, err := io.ReadFull(r, buf); err != nil {
				return Request{}, err
			}
			rows[i] = buf
		}
		req.Rows = rows
	case tagRead:
		qid, err := readUint64(r)
		if err != nil {
			return Request{}, err
		}
		max, err := readUint32(r)
		if err != nil {
			return Request{}, err
		}
		req.QID, req.Max = qid, max
	case tagAddToBatch:
		qid, err := readUint64(r)
		if err != nil {
			return Request{}, err
		}
		l, err := readUint32(r)
		if err != nil {
			return Request{}, err
		}
		buf := make([]byte, l)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Request{}, err
		}
		req.QID = qid
		req.Rows = [][]byte{buf}
	default:
		return Request{}, fmt.Errorf("ipcserver: unknown request tag %d", tag)
	}
	return req, nil
}
