package ipcserver

import (
	"fmt"
	"io"

	"ansilo/internal/sqlil"
)

func okResponse(requestID uint64) Response {
	return Response{RequestID: requestID, Tag: tagOk}
}

func errResponse(requestID uint64, kind, message string) Response {
	return Response{RequestID: requestID, Tag: tagErrorResp, Err: &ErrorResponse{Kind: kind, Message: message}}
}

func rowsResponse(requestID uint64, rows [][]byte) Response {
	return Response{RequestID: requestID, Tag: tagRowsResp, Rows: rows}
}

func costResponse(requestID uint64, cost sqlil.OperationCost) Response {
	return Response{RequestID: requestID, Tag: tagCostResp, Cost: &cost}
}

func costResponseWithQID(requestID, qid uint64, cost sqlil.OperationCost) Response {
	return Response{RequestID: requestID, Tag: tagCostResp, QID: qid, Cost: &cost}
}

func explainResponse(requestID uint64, lines []string) Response {
	return Response{RequestID: requestID, Tag: tagExplainResp, Explain: lines}
}

func encodeResponse(w io.Writer, resp Response) error {
	if err := writeUint64(w, resp.RequestID); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(resp.Tag)); err != nil {
		return err
	}
	switch resp.Tag {
	case tagOk:
		return nil
	case tagErrorResp:
		if err := writeString(w, resp.Err.Kind); err != nil {
			return err
		}
		return writeString(w, resp.Err.Message)
	case tagRowsResp:
		if err := writeUint32(w, uint32(len(resp.Rows))); err != nil {
			return err
		}
		for _, row := range resp.Rows {
			if err := writeUint32(w, uint32(len(row))); err != nil {
				return err
			}
			if _, err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	case tagCostResp:
		if err := writeUint64(w, resp.QID); err != nil {
			return err
		}
		return writeOptionalUint64(w, resp.Cost.Rows)
	case tagExplainResp:
		if err := writeUint32(w, uint32(len(resp.Explain))); err != nil {
			return err
		}
		for _, l := range resp.Explain {
			if err := writeString(w, l); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("ipcserver: unknown response tag %d", resp.Tag)
	}
}

func writeOptionalUint64(w io.Writer, v *uint64) error {
	if v == nil {
		return writeUint64(w, 0)
	}
	if err := writeUint64(w, 1); err != nil {
		return err
	}
	return writeUint64(w, *v)
}

func readOptionalUint64(r io.Reader) (*uint64, error) {
	present, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	v, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func decodeResponse(r io.Reader) (Response, error) {
	requestID, err := readUint64(r)
	if err != nil {
		return Response{}, err
	}
	tagU, err := readUint32(r)
	if err != nil {
		return Response{}, err
	}
	resp := Response{RequestID: requestID, Tag: int(tagU)}
	switch resp.Tag {
	case tagOk:
		return resp, nil
	case tagErrorResp:
		kind, err := readString(r)
		if err != nil {
			return Response{}, err
		}
		msg, err := readString(r)
		if err != nil {
			return Response{}, err
		}
		resp.Err = &ErrorResponse{Kind: kind, Message: msg}
		return resp, nil
	case tagRowsResp:
		n, err := readUint32(r)
		if err != nil {
			return Response{}, err
		}
		rows := make([][]byte, n)
		for i := range rows {
			l, err := readUint32(r)
			if err != nil {
				return Response{}, err
			}
			buf := make([]byte, l)
			if _, err := io.ReadFull(r, buf); err != nil {
				return Response{}, err
			}
			rows[i] = buf
		}
		resp.Rows = rows
		return resp, nil
	case tagCostResp:
		qid, err := readUint64(r)
		if err != nil {
			return Response{}, err
		}
		rows, err := readOptionalUint64(r)
		if err != nil {
			return Response{}, err
		}
		resp.QID = qid
		resp.Cost = &sqlil.OperationCost{Rows: rows}
		return resp, nil
	case tagExplainResp:
		n, err := readUint32(r)
		if err != nil {
			return Response{}, err
		}
		lines := make([]string, n)
		for i := range lines {
			s, err := readString(r)
			if err != nil {
				return Response{}, err
			}
			lines[i] = s
		}
		resp.Explain = lines
		return resp, nil
	default:
		return Response{}, fmt.Errorf("ipcserver: unknown response tag %d", resp.Tag)
	}
}
