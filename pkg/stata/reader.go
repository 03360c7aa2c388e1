package stata

import (
	"bytes"
	"encoding/binary"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// reader is a forward-only cursor over a little-endian buffer. Every read
// names the field it is reading so truncation errors point at the right place.
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) rest() []byte { return r.buf[r.pos:] }

func (r *reader) take(n int, field string) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, errors.Newf(errors.ErrorTypeStructural, "truncated input reading %s", field).
			WithDetail("offset", r.pos).
			WithDetail("want", n).
			WithDetail("have", r.remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) skip(n int, field string) error {
	_, err := r.take(n, field)
	return err
}

func (r *reader) u8(field string) (uint8, error) {
	b, err := r.take(1, field)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16(field string) (uint16, error) {
	b, err := r.take(2, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32(field string) (uint32, error) {
	b, err := r.take(4, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) i32(field string) (int32, error) {
	v, err := r.u32(field)
	return int32(v), err
}

func (r *reader) u64(field string) (uint64, error) {
	b, err := r.take(8, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// text reads a fixed-width NUL-padded field.
func (r *reader) text(n int, field string) (string, error) {
	b, err := r.take(n, field)
	if err != nil {
		return "", err
	}
	s, err := DecodeString(b)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeDecode, "invalid text in "+field)
	}
	return s, nil
}

// label reads a fixed-width NUL-padded free-text field with DecodeLabel.
func (r *reader) label(n int, field string) (string, error) {
	b, err := r.take(n, field)
	if err != nil {
		return "", err
	}
	return DecodeLabel(b), nil
}

// expect consumes a literal tag.
func (r *reader) expect(tag string) error {
	if r.remaining() < len(tag) || !bytes.Equal(r.buf[r.pos:r.pos+len(tag)], []byte(tag)) {
		return errors.Newf(errors.ErrorTypeStructural, "expected tag %s", tag).
			WithDetail("offset", r.pos)
	}
	r.pos += len(tag)
	return nil
}
