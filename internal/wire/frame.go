// Package wire implements the length-prefixed JSON framing every
// connection speaks: a 4-byte big-endian length followed by that many
// bytes of UTF-8 JSON body. There is no magic number, no checksum, and no
// version field.
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// MaxFrameSize bounds a single frame body to guard against a corrupt or
// hostile length prefix causing an enormous allocation. It is generous
// relative to any realistic file-list message.
const MaxFrameSize = 64 << 20 // 64 MiB

// ErrFrameTooLarge is returned when a frame's declared length exceeds
// MaxFrameSize.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// ErrNotUTF8 is returned when a frame body is not valid UTF-8.
var ErrNotUTF8 = errors.New("wire: frame body is not valid utf-8")

// ReadFrame reads one length-prefixed frame from r. It returns io.EOF only
// when the connection is closed cleanly between frames; a length or body
// truncated mid-frame is reported as io.ErrUnexpectedEOF via the wrapped
// error from io.ReadFull.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			// the length prefix arrived but none of the body did: still a
			// mid-frame truncation, not a clean close between frames
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("wire: read frame body: %w", err)
	}

	if !utf8.Valid(body) {
		return nil, ErrNotUTF8
	}

	return body, nil
}

// WriteFrame writes body as one length-prefixed frame to w, flushing
// immediately if w is a *bufio.Writer.
func WriteFrame(w io.Writer, body []byte) error {
	if len(body) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(body))
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))

	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("wire: write frame length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wire: write frame body: %w", err)
	}
	if bw, ok := w.(*bufio.Writer); ok {
		return bw.Flush()
	}
	return nil
}
