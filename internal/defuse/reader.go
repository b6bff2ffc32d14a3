package defuse

import (
	"errors"
	"fmt"
	"io"
)

const (
	// initialBufferSize is the look-ahead buffer size for non-seekable streams.
	initialBufferSize = 64 * 1024
	// maxBufferSize is the buffer size after the single allowed growth.
	maxBufferSize = 2 * initialBufferSize
)

var errSeekBeyondBuffer = errors.New("seek beyond the buffered prefix")

// Reader wraps a non-seekable stream in a bounded look-ahead buffer. It
// supports limited seeks within the buffered prefix and unbounded forward
// reads beyond it; once a read passes the buffer bound, rewinding fails.
type Reader struct {
	src      io.Reader
	buf      []byte
	pos      int
	grown    bool
	overflow bool
}

// NewReader wraps src in a bounded look-ahead reader.
func NewReader(src io.Reader) *Reader {
	return &Reader{
		src: src,
		buf: make([]byte, 0, initialBufferSize),
	}
}

// Read serves buffered bytes first, then reads from the source, retaining
// what it reads while the buffer bound allows.
func (r *Reader) Read(p []byte) (int, error) {
	if r.pos < len(r.buf) {
		n := copy(p, r.buf[r.pos:])
		r.pos += n
		return n, nil
	}

	n, err := r.src.Read(p)
	if n > 0 {
		r.retain(p[:n])
		r.pos += n
	}
	return n, err
}

func (r *Reader) retain(data []byte) {
	if r.overflow {
		return
	}
	if len(r.buf)+len(data) > cap(r.buf) {
		if r.grown {
			r.overflow = true
			return
		}
		grownBuf := make([]byte, len(r.buf), maxBufferSize)
		copy(grownBuf, r.buf)
		r.buf = grownBuf
		r.grown = true
		if len(r.buf)+len(data) > cap(r.buf) {
			r.overflow = true
			return
		}
	}
	r.buf = append(r.buf, data...)
}

// Seek repositions the reader within the buffered prefix. Seeking is refused
// once reads have passed the buffer bound, or to offsets outside the prefix.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = int64(r.pos) + offset
	case io.SeekEnd:
		return 0, fmt.Errorf("seek from end is not supported on a look-ahead reader")
	default:
		return 0, fmt.Errorf("invalid seek whence %d", whence)
	}
	if r.overflow {
		return 0, errSeekBeyondBuffer
	}
	if target < 0 || target > int64(len(r.buf)) {
		return 0, errSeekBeyondBuffer
	}
	r.pos = int(target)
	return target, nil
}

// Buffered returns how many bytes of the stream prefix are retained.
func (r *Reader) Buffered() int {
	return len(r.buf)
}
