package stata

import (
	"github.com/ajitpratap0/dta2parquet/pkg/columnar"
	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// SchemaFunc derives the output schema from the variable list. Implementations
// may choose field names but must keep one field per variable, in order, with
// the type given by ColumnTypeOf.
type SchemaFunc func(vars []Var) (*columnar.Schema, error)

// ColumnTypeOf returns the output column type of a variable type.
func ColumnTypeOf(t VarType) columnar.ColumnType {
	switch t.Kind {
	case KindStrFixed, KindStrASCII:
		return columnar.ColumnTypeUtf8
	case KindStrL:
		return columnar.ColumnTypeBinary
	case KindInt8:
		return columnar.ColumnTypeInt8
	case KindInt16:
		return columnar.ColumnTypeInt16
	case KindInt32:
		return columnar.ColumnTypeInt32
	case KindFloat32:
		return columnar.ColumnTypeFloat32
	default:
		return columnar.ColumnTypeFloat64
	}
}

// MakeSchema names each field after its variable.
func MakeSchema(vars []Var) (*columnar.Schema, error) {
	fields := make([]columnar.Field, len(vars))
	for i, v := range vars {
		fields[i] = columnar.Field{Name: v.Name, Type: ColumnTypeOf(v.Type)}
	}
	return columnar.NewSchema(fields), nil
}

// checkSchema verifies that schema is positionally aligned with vars.
func checkSchema(vars []Var, schema *columnar.Schema) error {
	if schema.NumFields() != len(vars) {
		return errors.Newf(errors.ErrorTypeConfig, "schema has %d fields for %d variables", schema.NumFields(), len(vars))
	}
	for i, v := range vars {
		want := ColumnTypeOf(v.Type)
		if got := schema.Field(i).Type; got != want {
			return errors.Newf(errors.ErrorTypeConfig, "schema field %d (%s) is %s, variable %s needs %s",
				i, schema.Field(i).Name, got, v.Name, want)
		}
	}
	return nil
}
