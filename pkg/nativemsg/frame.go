// Package nativemsg implements the length-framed JSON protocol that lets an
// external controller drive the download engine over a pair of byte
// streams: commands in on one, events out on the other.
package nativemsg

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame's payload. Chosen to match the
// browser native-messaging convention this protocol is adjacent to.
const MaxFrameSize = 1024 * 1024

// ReadFrame reads one length-prefixed frame from r. The length prefix is
// 4 bytes in the host's native byte order - not network byte order - per
// the transport's wire contract. A short read on either the length or the
// payload surfaces as io.ErrUnexpectedEOF or io.EOF and means the stream
// is done; the caller should treat it as clean shutdown, not BadCommand.
func ReadFrame(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.NativeEndian, &length); err != nil {
		return nil, err
	}
	if length > MaxFrameSize {
		return nil, fmt.Errorf("nativemsg: frame too large: %d bytes (max %d)", length, MaxFrameSize)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteFrame writes payload to w as one length-prefixed frame, length
// first in host byte order, then the payload bytes. Callers that need
// atomicity across concurrent writers must serialize calls themselves -
// see Emitter.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("nativemsg: frame too large: %d bytes (max %d)", len(payload), MaxFrameSize)
	}
	length := uint32(len(payload))
	if err := binary.Write(w, binary.NativeEndian, length); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
