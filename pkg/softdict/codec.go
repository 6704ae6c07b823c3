package softdict

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/softdict/pkg/errors"
)

const (
	// maxStringLen bounds a single encoded string so a damaged length cannot
	// trigger a huge allocation.
	maxStringLen = 1 << 24
	// maxPrealloc caps slice capacity taken from an untrusted count.
	maxPrealloc = 1 << 16
)

// encoder writes little-endian primitives, remembering the first error.
type encoder struct {
	w   io.Writer
	n   int64
	err error
	buf [8]byte
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(p)
	e.n += int64(n)
	e.err = err
}

func (e *encoder) u32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *encoder) i32(v int) { e.u32(uint32(int32(v))) }

func (e *encoder) f64(v float64) {
	binary.LittleEndian.PutUint64(e.buf[:8], math.Float64bits(v))
	e.write(e.buf[:8])
}

func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	e.write([]byte(s))
}

// decoder reads what encoder wrote. Any short read or implausible length is
// reported as ErrCorrupt.
type decoder struct {
	r   io.Reader
	err error
	buf [8]byte
}

func (d *decoder) fail(what string, err error) {
	if d.err != nil {
		return
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	d.err = fmt.Errorf("%w: reading %s: %w", apperrors.ErrCorrupt, what, err)
}

func (d *decoder) read(what string, p []byte) bool {
	if d.err != nil {
		return false
	}
	if _, err := io.ReadFull(d.r, p); err != nil {
		d.fail(what, err)
		return false
	}
	return true
}

func (d *decoder) u32(what string) uint32 {
	if !d.read(what, d.buf[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(d.buf[:4])
}

func (d *decoder) i32(what string) int { return int(int32(d.u32(what))) }

func (d *decoder) f64(what string) float64 {
	if !d.read(what, d.buf[:8]) {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(d.buf[:8]))
}

func (d *decoder) count(what string) int {
	return int(d.u32(what))
}

func (d *decoder) str(what string) string {
	n := d.u32(what)
	if d.err != nil {
		return ""
	}
	if n > maxStringLen {
		d.fail(what, fmt.Errorf("string length %d exceeds limit", n))
		return ""
	}
	p := make([]byte, n)
	if !d.read(what, p) {
		return ""
	}
	return string(p)
}

func (d *decoder) corrupt(format string, args ...any) {
	if d.err != nil {
		return
	}
	d.err = fmt.Errorf("%w: %s", apperrors.ErrCorrupt, fmt.Sprintf(format, args...))
}
