package ipcserver

import (
	"bytes"
	"context"
	"fmt"
	"net"
)

// Client is a minimal driver of this package's own wire protocol, used by
// ansiloctl to authenticate a session and issue Discover/Explain requests
// against a running ansilo-connectord without going through the FDW
// extension. It speaks the exact same frames Session.handle consumes, so
// there is no separate client-side codec to keep in sync.
type Client struct {
	conn net.Conn
	next uint64
}

// Dial connects to the node's Unix domain socket.
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("ipcserver: dialing %s: %w", socketPath, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) call(req Request) (Response, error) {
	c.next++
	req.ID = c.next

	var buf bytes.Buffer
	if err := encodeRequest(&buf, req); err != nil {
		return Response{}, fmt.Errorf("ipcserver: encoding request: %w", err)
	}
	if err := writeFrame(c.conn, buf.Bytes()); err != nil {
		return Response{}, err
	}

	payload, err := readFrame(c.conn)
	if err != nil {
		return Response{}, fmt.Errorf("ipcserver: reading response frame: %w", err)
	}
	resp, err := decodeResponse(bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("ipcserver: decoding response: %w", err)
	}
	if resp.Tag == tagErrorResp {
		return resp, fmt.Errorf("ipcserver: %s: %s", resp.Err.Kind, resp.Err.Message)
	}
	return resp, nil
}

// Auth authenticates the session against dataSourceID using a pre-minted
// session token (see auth.TokenIssuer.Issue), the same handshake the FDW
// extension performs before any other request.
func (c *Client) Auth(token, dataSourceID string) error {
	_, err := c.call(Request{Tag: tagAuthDataSource, Auth: &AuthDataSource{Token: token, DataSourceID: dataSourceID}})
	return err
}

// Discover lists entity ids the data source's EntitySearcher returns for
// filter (connector-specific glob/schema pattern; empty means "all").
func (c *Client) Discover(filter string) ([]string, error) {
	resp, err := c.call(Request{Tag: tagDiscover, Disc: &Discover{Filter: filter}})
	if err != nil {
		return nil, err
	}
	return resp.Explain, nil
}

// ExplainSelect opens a bare `select * from entityID` draft (no predicates
// applied) and returns its explain lines: the create_base_select verdict and
// a summary line carrying the EstimateCost row count. This only reports the
// base-scan cost a connector assigns before any pushdown mutation narrows
// it; a fuller EXPLAIN walking ApplyWhere/ApplyColumn is the FDW's job, not
// this standalone CLI's.
func (c *Client) ExplainSelect(entityID string) ([]string, error) {
	cq, err := c.call(Request{Tag: tagCreateQuery, CQ: &CreateQuery{EntityID: entityID, Kind: "select"}})
	if err != nil {
		return nil, err
	}
	defer func() { _, _ = c.call(Request{Tag: tagClose, QID: cq.QID}) }()

	resp, err := c.call(Request{Tag: tagExplain, QID: cq.QID})
	if err != nil {
		return nil, err
	}
	return resp.Explain, nil
}
