// Package ipcserver implements the FDW-facing Unix domain socket server of
// §4.E: one session state machine per accepted connection, length-prefixed
// framing, and a worker pool sized cores*2 so sessions are processed
// independently in parallel.
package ipcserver

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ProtocolVersion is the single version byte prefixing every frame (§6);
// a mismatched version closes the socket rather than attempting to
// negotiate.
const ProtocolVersion byte = 1

const maxFrameBytes = 64 << 20

// writeFrame writes a 4-byte big-endian length prefix, the version byte,
// then payload, per §6's framing.
func writeFrame(w io.Writer, payload []byte) error {
	var hdr [5]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(len(payload))+1)
	hdr[4] = ProtocolVersion
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("ipcserver: writing frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("ipcserver: writing frame payload: %w", err)
	}
	return nil
}

// readFrame reads one frame, validating the version byte. A version
// mismatch is a protocol error the caller must treat as fatal (close the
// socket), per §6.
func readFrame(r io.Reader) ([]byte, error) {
	var hdrLen [4]byte
	if _, err := io.ReadFull(r, hdrLen[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdrLen[:])
	if n == 0 || n > maxFrameBytes {
		return nil, fmt.Errorf("ipcserver: frame length %d out of bounds", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("ipcserver: reading frame body: %w", err)
	}
	if buf[0] != ProtocolVersion {
		return nil, fmt.Errorf("ipcserver: unsupported protocol version %d", buf[0])
	}
	return buf[1:], nil
}
