package ipcserver

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

func TestEncodeDecodeRequestAuthDataSource(t *testing.T) {
	req := Request{ID: 1, Tag: tagAuthDataSource, Auth: &AuthDataSource{Token: "tok", DataSourceID: "pg1"}}
	var buf bytes.Buffer
	require.NoError(t, encodeRequest(&buf, req))

	got, err := decodeRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, *req.Auth, *got.Auth)
}

func TestEncodeDecodeRequestApplyWhereCarriesExpr(t *testing.T) {
	cond := sqlil.BinaryOp{
		Left:  sqlil.Attribute{Alias: "p", AttrID: "age"},
		Kind:  sqlil.BinaryGreaterThan,
		Right: sqlil.Constant{Value: data.NewInt32(18)},
	}
	req := Request{ID: 5, Tag: tagApplyWhere, QID: 1, Cond: cond}
	var buf bytes.Buffer
	require.NoError(t, encodeRequest(&buf, req))

	got, err := decodeRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, cond, got.Cond)
}

func TestEncodeDecodeRequestWriteParams(t *testing.T) {
	req := Request{ID: 9, Tag: tagWriteParams, QID: 3, Rows: [][]byte{{1, 2, 3}, {4, 5}}}
	var buf bytes.Buffer
	require.NoError(t, encodeRequest(&buf, req))

	got, err := decodeRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, req.Rows, got.Rows)
	assert.Equal(t, req.QID, got.QID)
}

func TestEncodeDecodeResponseCostCarriesQID(t *testing.T) {
	rows := uint64(42)
	resp := costResponseWithQID(7, 11, sqlil.OperationCost{Rows: &rows})
	var buf bytes.Buffer
	require.NoError(t, encodeResponse(&buf, resp))

	got, err := decodeResponse(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), got.QID)
	require.NotNil(t, got.Cost.Rows)
	assert.Equal(t, rows, *got.Cost.Rows)
}

func TestEncodeDecodeResponseError(t *testing.T) {
	resp := errResponse(3, "fatal", "boom")
	var buf bytes.Buffer
	require.NoError(t, encodeResponse(&buf, resp))

	got, err := decodeResponse(&buf)
	require.NoError(t, err)
	assert.Equal(t, "fatal", got.Err.Kind)
	assert.Equal(t, "boom", got.Err.Message)
}
