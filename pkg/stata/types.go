package stata

import (
	"fmt"
)

// Kind is the closed set of on-disk variable representations.
type Kind uint8

const (
	// KindStrFixed is a fixed-width string in the tagged layout (str1..str2045).
	KindStrFixed Kind = iota
	// KindStrL is a long string stored out of line in the strl block.
	KindStrL
	// KindStrASCII is a fixed-width string in the legacy layout (str1..str244).
	KindStrASCII
	KindInt8
	KindInt16
	KindInt32
	KindFloat32
	KindFloat64
)

// strlCellSize is the width of a long-string reference inside a row.
const strlCellSize = 8

// VarType describes a variable's physical representation. Width is only
// meaningful for the fixed-width string kinds.
type VarType struct {
	Kind  Kind
	Width int
}

// Size returns the number of bytes the variable occupies in one row.
func (t VarType) Size() int {
	switch t.Kind {
	case KindStrFixed, KindStrASCII:
		return t.Width
	case KindStrL:
		return strlCellSize
	case KindInt8:
		return 1
	case KindInt16:
		return 2
	case KindInt32, KindFloat32:
		return 4
	case KindFloat64:
		return 8
	default:
		return 0
	}
}

// String returns the Stata storage type name.
func (t VarType) String() string {
	switch t.Kind {
	case KindStrFixed, KindStrASCII:
		return fmt.Sprintf("str%d", t.Width)
	case KindStrL:
		return "strL"
	case KindInt8:
		return "byte"
	case KindInt16:
		return "int"
	case KindInt32:
		return "long"
	case KindFloat32:
		return "float"
	case KindFloat64:
		return "double"
	default:
		return fmt.Sprintf("Kind(%d)", t.Kind)
	}
}

// Var is one entry of the variable dictionary.
type Var struct {
	Name           string
	Type           VarType
	Format         string
	ValueLabelName string
	Label          string

	// Offset is the byte offset of the variable inside a row.
	Offset int

	// ValueLabels is set by AttachValueLabels and may be shared between
	// variables that reference the same label set. Read-only.
	ValueLabels *ValueLabelTable
}

// ByteOrder of the numeric fields in the file.
type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota + 1
	BigEndian
)

func (b ByteOrder) String() string {
	switch b {
	case LittleEndian:
		return "LSF"
	case BigEndian:
		return "MSF"
	default:
		return "unknown"
	}
}

// Metadata is the parsed header and variable dictionary of a .dta file.
// It is immutable once ParseMetadata returns.
type Metadata struct {
	Release   int
	ByteOrder ByteOrder
	NVars     int
	NObs      int
	Vars      []Var
	RowSize   int
	DataSize  int
	Label     string
	Timestamp string
}

// Legacy reports whether the file uses the fixed-binary 113/114 layout.
func (m *Metadata) Legacy() bool {
	return m.Release == 113 || m.Release == 114
}

// FileMap holds zero-copy views into the source buffer. The slices are only
// valid for as long as the buffer passed to ParseMetadata.
type FileMap struct {
	Data        []byte
	ValueLabels []byte
	Strls       []byte
}
