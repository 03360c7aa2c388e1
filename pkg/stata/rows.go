package stata

import (
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/dta2parquet/pkg/columnar"
	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// columnDecoder reads one variable out of a row into its accumulator. The
// concrete type is fixed per column when the plan is built.
type columnDecoder interface {
	decode(row []byte) error
	columnar.Finisher
}

type numericDecoder[T any] struct {
	offset int
	size   int
	read   func([]byte) Value[T]
	*columnar.Accumulator[T]
}

func (d *numericDecoder[T]) decode(row []byte) error {
	v := d.read(row[d.offset : d.offset+d.size])
	if v.Missing {
		d.AppendNull()
	} else {
		d.Append(v.V)
	}
	return nil
}

type stringDecoder struct {
	offset int
	width  int
	*columnar.Accumulator[string]
}

func (d *stringDecoder) decode(row []byte) error {
	s, err := DecodeString(row[d.offset : d.offset+d.width])
	if err != nil {
		return err
	}
	d.Append(s)
	return nil
}

type strlDecoder struct {
	offset  int
	release int
	strls   *StrlTable
	*columnar.Accumulator[[]byte]
}

func (d *strlDecoder) decode(row []byte) error {
	payload, err := d.strls.Lookup(DecodeStrlKey(row[d.offset:d.offset+strlCellSize], d.release))
	if err != nil {
		return err
	}
	d.Append(payload)
	return nil
}

func newColumnDecoder(v Var, release int, strls *StrlTable, mem memory.Allocator, capacity int) columnDecoder {
	switch v.Type.Kind {
	case KindStrFixed, KindStrASCII:
		return &stringDecoder{offset: v.Offset, width: v.Type.Width,
			Accumulator: columnar.NewStringAccumulator(mem, capacity)}
	case KindStrL:
		return &strlDecoder{offset: v.Offset, release: release, strls: strls,
			Accumulator: columnar.NewBinaryAccumulator(mem, capacity)}
	case KindInt8:
		return &numericDecoder[int8]{offset: v.Offset, size: 1, read: DecodeInt8,
			Accumulator: columnar.NewInt8Accumulator(mem, capacity)}
	case KindInt16:
		return &numericDecoder[int16]{offset: v.Offset, size: 2, read: DecodeInt16,
			Accumulator: columnar.NewInt16Accumulator(mem, capacity)}
	case KindInt32:
		return &numericDecoder[int32]{offset: v.Offset, size: 4, read: DecodeInt32,
			Accumulator: columnar.NewInt32Accumulator(mem, capacity)}
	case KindFloat32:
		return &numericDecoder[float32]{offset: v.Offset, size: 4, read: DecodeFloat32,
			Accumulator: columnar.NewFloat32Accumulator(mem, capacity)}
	default:
		return &numericDecoder[float64]{offset: v.Offset, size: 8, read: DecodeFloat64,
			Accumulator: columnar.NewFloat64Accumulator(mem, capacity)}
	}
}

// DecodeRows decodes observations [start, end) into one leaf column per
// schema field, in field order. meta, fm and strls are only read, so any
// number of calls may run concurrently over disjoint or overlapping ranges.
func DecodeRows(meta *Metadata, fm *FileMap, strls *StrlTable, schema *columnar.Schema, start, end int) (columnar.Chunk, error) {
	if start < 0 || end < start || end > meta.NObs {
		return nil, errors.Newf(errors.ErrorTypeInternal, "row range [%d, %d) outside [0, %d)", start, end, meta.NObs)
	}
	if err := checkSchema(meta.Vars, schema); err != nil {
		return nil, err
	}

	n := end - start
	decoders := make([]columnDecoder, len(meta.Vars))
	for i, v := range meta.Vars {
		decoders[i] = newColumnDecoder(v, meta.Release, strls, memory.DefaultAllocator, n)
	}
	defer func() {
		for _, d := range decoders {
			d.Release()
		}
	}()

	rs := meta.RowSize
	if rs == 0 {
		end = start
	}
	for i := start; i < end; i++ {
		row := fm.Data[i*rs : (i+1)*rs]
		for j, d := range decoders {
			if err := d.decode(row); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeDecode, "decode failed").
					WithDetail("row", i).
					WithDetail("variable", meta.Vars[j].Name)
			}
		}
	}

	chunk := make(columnar.Chunk, len(decoders))
	for i, d := range decoders {
		chunk[i] = d.Finish()
	}
	return chunk, nil
}
