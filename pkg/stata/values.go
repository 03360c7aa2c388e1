package stata

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// MissingCode identifies one of the extended missing values .a through .z.
// Zero means plain "." (no code).
type MissingCode uint8

const (
	NoMissingCode  MissingCode = 0
	MaxMissingCode MissingCode = 26
)

func (c MissingCode) String() string {
	if c == NoMissingCode || c > MaxMissingCode {
		return "."
	}
	return "." + string(rune('a'+c-1))
}

// Value is a decoded numeric cell: either V, or missing with an optional code.
type Value[T any] struct {
	V       T
	Missing bool
	Code    MissingCode
}

func present[T any](v T) Value[T] { return Value[T]{V: v} }

func missing[T any](code MissingCode) Value[T] {
	return Value[T]{Missing: true, Code: code}
}

// Largest non-missing integers. The next value up is ".", followed by .a-.z.
const (
	maxInt8  = 100
	maxInt16 = 32740
	maxInt32 = 2147483620
)

// Bit patterns of "." for the float types. Values at or above these (as
// signed integers, so negative numbers are never missing) are missing.
const (
	missingFloat32 = 0x7f000000
	missingFloat64 = 0x7fe0000000000000

	// .a-.z step through bits 11..18 (float32) and 40..47 (float64).
	float32CodeShift = 11
	float64CodeShift = 40
)

// DecodeInt8 decodes a byte cell. b must hold at least 1 byte.
func DecodeInt8(b []byte) Value[int8] {
	v := int8(b[0])
	if v > maxInt8 {
		return missing[int8](intCode(int64(v), maxInt8))
	}
	return present(v)
}

// DecodeInt16 decodes an int cell. b must hold at least 2 bytes.
func DecodeInt16(b []byte) Value[int16] {
	v := int16(binary.LittleEndian.Uint16(b))
	if v > maxInt16 {
		return missing[int16](intCode(int64(v), maxInt16))
	}
	return present(v)
}

// DecodeInt32 decodes a long cell. b must hold at least 4 bytes.
func DecodeInt32(b []byte) Value[int32] {
	v := int32(binary.LittleEndian.Uint32(b))
	if v > maxInt32 {
		return missing[int32](intCode(int64(v), maxInt32))
	}
	return present(v)
}

// intCode maps an integer above max to its missing code: max+1 is ".",
// max+2.. are .a onwards.
func intCode(v, max int64) MissingCode {
	c := v - max - 1
	if c < 1 || c > int64(MaxMissingCode) {
		return NoMissingCode
	}
	return MissingCode(c)
}

// DecodeFloat32 decodes a float cell. b must hold at least 4 bytes.
func DecodeFloat32(b []byte) Value[float32] {
	bits := binary.LittleEndian.Uint32(b)
	if int32(bits) >= missingFloat32 {
		return missing[float32](floatCode(uint64(bits), float32CodeShift))
	}
	return present(math.Float32frombits(bits))
}

// DecodeFloat64 decodes a double cell. b must hold at least 8 bytes.
func DecodeFloat64(b []byte) Value[float64] {
	bits := binary.LittleEndian.Uint64(b)
	if int64(bits) >= missingFloat64 {
		return missing[float64](floatCode(bits, float64CodeShift))
	}
	return present(math.Float64frombits(bits))
}

// floatCode recovers .a-.z from a missing float pattern. Anything that is not
// exactly one of the 26 coded patterns (including NaN payloads) is plain ".".
func floatCode(bits uint64, shift uint) MissingCode {
	low := bits & (1<<shift - 1)
	c := (bits >> shift) & 0xff
	if low != 0 || c < 1 || c > uint64(MaxMissingCode) {
		return NoMissingCode
	}
	return MissingCode(c)
}

// DecodeString decodes a fixed-width text field: the bytes up to the first NUL,
// which must be valid UTF-8.
func DecodeString(b []byte) (string, error) {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if !utf8.Valid(b) {
		return "", errors.New(errors.ErrorTypeDecode, "string is not valid UTF-8").
			WithDetail("bytes", len(b))
	}
	return string(b), nil
}

// DecodeLabel decodes a fixed-width free-text field like DecodeString, but
// replaces invalid UTF-8, such as Latin-1 text from older releases, with U+FFFD.
func DecodeLabel(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// StrlKey identifies a long string by observation key O and variable index V.
// The zero key refers to the empty string.
type StrlKey struct {
	O uint64
	V uint32
}

// IsZero reports whether k is the (0,0) empty-string reference.
func (k StrlKey) IsZero() bool { return k.O == 0 && k.V == 0 }

// Compare orders keys by (O, V).
func (k StrlKey) Compare(other StrlKey) int {
	switch {
	case k.O < other.O:
		return -1
	case k.O > other.O:
		return 1
	case k.V < other.V:
		return -1
	case k.V > other.V:
		return 1
	default:
		return 0
	}
}

// DecodeStrlKey decodes the 8-byte long-string reference stored in a row.
// Release 118 packs v:u16 then o:u48; release 117 uses v:u32 then o:u32.
func DecodeStrlKey(b []byte, release int) StrlKey {
	if release == 117 {
		return StrlKey{
			V: binary.LittleEndian.Uint32(b[0:4]),
			O: uint64(binary.LittleEndian.Uint32(b[4:8])),
		}
	}
	var o [8]byte
	copy(o[:6], b[2:8])
	return StrlKey{
		V: uint32(binary.LittleEndian.Uint16(b[0:2])),
		O: binary.LittleEndian.Uint64(o[:]),
	}
}
