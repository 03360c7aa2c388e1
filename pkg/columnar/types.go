package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// ColumnType is the closed set of physical output types a column can have.
type ColumnType int

const (
	ColumnTypeUtf8 ColumnType = iota
	ColumnTypeBinary
	ColumnTypeInt8
	ColumnTypeInt16
	ColumnTypeInt32
	ColumnTypeFloat32
	ColumnTypeFloat64
)

func (t ColumnType) String() string {
	switch t {
	case ColumnTypeUtf8:
		return "utf8"
	case ColumnTypeBinary:
		return "binary"
	case ColumnTypeInt8:
		return "int8"
	case ColumnTypeInt16:
		return "int16"
	case ColumnTypeInt32:
		return "int32"
	case ColumnTypeFloat32:
		return "float32"
	case ColumnTypeFloat64:
		return "float64"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// ArrowType returns the Arrow data type backing the column type.
func (t ColumnType) ArrowType() arrow.DataType {
	switch t {
	case ColumnTypeUtf8:
		return arrow.BinaryTypes.String
	case ColumnTypeBinary:
		return arrow.BinaryTypes.Binary
	case ColumnTypeInt8:
		return arrow.PrimitiveTypes.Int8
	case ColumnTypeInt16:
		return arrow.PrimitiveTypes.Int16
	case ColumnTypeInt32:
		return arrow.PrimitiveTypes.Int32
	case ColumnTypeFloat32:
		return arrow.PrimitiveTypes.Float32
	case ColumnTypeFloat64:
		return arrow.PrimitiveTypes.Float64
	default:
		panic(fmt.Sprintf("columnar: unknown column type %d", int(t)))
	}
}

// Field is one named output column.
type Field struct {
	Name string
	Type ColumnType
}

// Schema is the ordered list of output columns. Every field is nullable and maps to
// exactly one leaf column, so field index and leaf index coincide.
type Schema struct {
	fields []Field
	arrow  *arrow.Schema
}

// NewSchema builds a schema from fields in declaration order.
func NewSchema(fields []Field) *Schema {
	arrowFields := make([]arrow.Field, len(fields))
	for i, f := range fields {
		arrowFields[i] = arrow.Field{
			Name:     f.Name,
			Type:     f.Type.ArrowType(),
			Nullable: true,
		}
	}

	owned := make([]Field, len(fields))
	copy(owned, fields)

	return &Schema{
		fields: owned,
		arrow:  arrow.NewSchema(arrowFields, nil),
	}
}

// NumFields returns the number of columns.
func (s *Schema) NumFields() int { return len(s.fields) }

// Field returns the i-th column.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Fields returns the columns in order. The slice must not be modified.
func (s *Schema) Fields() []Field { return s.fields }

// Arrow returns the equivalent Arrow schema.
func (s *Schema) Arrow() *arrow.Schema { return s.arrow }
