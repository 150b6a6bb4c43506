package ipcserver

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, []byte("hello")))

	got, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestReadFrameRejectsWrongVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, []byte("x")))
	raw := buf.Bytes()
	raw[4] = ProtocolVersion + 1 // corrupt the version byte

	_, err := readFrame(bytes.NewReader(raw))
	assert.Error(t, err)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var hdr [4]byte
	hdr[0] = 0xFF // length far beyond maxFrameBytes
	_, err := readFrame(bytes.NewReader(hdr[:]))
	assert.Error(t, err)
}
