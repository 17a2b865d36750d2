// Package frame implements the length-prefixed framing used on the harness
// stdio channel: a 4 byte little-endian length followed by that many bytes.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const HeaderSize = 4

var (
	// ErrStreamClosed is returned when the peer closes the stream while a
	// header is expected. It is the normal shutdown signal.
	ErrStreamClosed = fmt.Errorf("stream closed: %w", io.EOF)
	// ErrTruncated is returned when the stream ends inside a frame body.
	ErrTruncated = errors.New("truncated frame")
)

type Reader struct {
	header [HeaderSize]byte
	r      io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadNext reads one frame body into b, growing it when needed.
func (r *Reader) ReadNext(b []byte) ([]byte, error) {
	_, err := io.ReadFull(r.r, r.header[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrStreamClosed
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	size := int(binary.LittleEndian.Uint32(r.header[:]))
	if b == nil || cap(b) < size {
		b = make([]byte, size)
	} else {
		b = b[:size]
	}

	n, err := io.ReadFull(r.r, b)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: read %d of %d bytes", ErrTruncated, n, size)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}

type flusher interface {
	Flush() error
}

type Writer struct {
	w   io.Writer
	buf []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteNext writes p as one frame with a single Write call and flushes w if
// it buffers.
func (w *Writer) WriteNext(p []byte) error {
	if uint64(len(p)) > uint64(^uint32(0)) {
		return fmt.Errorf("frame too large: %d bytes", len(p))
	}

	w.buf = binary.LittleEndian.AppendUint32(w.buf[:0], uint32(len(p)))
	w.buf = append(w.buf, p...)

	n, err := w.w.Write(w.buf)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if n != HeaderSize+len(p) {
		panic("assertion error: wrote " + strconv.Itoa(n) + " bytes of " + strconv.Itoa(HeaderSize+len(p)))
	}

	if f, ok := w.w.(flusher); ok {
		if err = f.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}
	return nil
}
