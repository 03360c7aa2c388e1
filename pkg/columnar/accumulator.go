package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Definition levels for a flat, nullable column.
const (
	defLevelNull    int16 = 0
	defLevelPresent int16 = 1
)

// LeafColumn is one physical leaf array together with the definition levels the
// Parquet encoder needs for it.
type LeafColumn struct {
	Array     arrow.Array
	DefLevels []int16
}

// Len returns the number of rows in the leaf.
func (l LeafColumn) Len() int {
	if l.Array == nil {
		return 0
	}
	return l.Array.Len()
}

// Release releases the underlying array.
func (l LeafColumn) Release() {
	if l.Array != nil {
		l.Array.Release()
	}
}

// Chunk holds the leaf columns decoded from one row range, in schema order.
type Chunk []LeafColumn

// NumRows returns the number of rows in the chunk.
func (c Chunk) NumRows() int {
	if len(c) == 0 {
		return 0
	}
	return c[0].Len()
}

// Release releases every leaf of the chunk.
func (c Chunk) Release() {
	for _, leaf := range c {
		leaf.Release()
	}
}

// Finisher is the type-erased view of an accumulator.
type Finisher interface {
	Len() int
	Finish() LeafColumn
	Release()
}

type valueBuilder[T any] interface {
	array.Builder
	Append(T)
}

// Accumulator appends values of one output type and tracks definition levels.
// It is owned by a single decode task and is not safe for concurrent use.
type Accumulator[T any] struct {
	b   valueBuilder[T]
	def []int16
}

func newAccumulator[T any](b valueBuilder[T], capacity int) *Accumulator[T] {
	b.Reserve(capacity)
	return &Accumulator[T]{b: b, def: make([]int16, 0, capacity)}
}

// NewInt8Accumulator creates an accumulator for int8 columns.
func NewInt8Accumulator(mem memory.Allocator, capacity int) *Accumulator[int8] {
	return newAccumulator[int8](array.NewInt8Builder(mem), capacity)
}

// NewInt16Accumulator creates an accumulator for int16 columns.
func NewInt16Accumulator(mem memory.Allocator, capacity int) *Accumulator[int16] {
	return newAccumulator[int16](array.NewInt16Builder(mem), capacity)
}

// NewInt32Accumulator creates an accumulator for int32 columns.
func NewInt32Accumulator(mem memory.Allocator, capacity int) *Accumulator[int32] {
	return newAccumulator[int32](array.NewInt32Builder(mem), capacity)
}

// NewFloat32Accumulator creates an accumulator for float32 columns.
func NewFloat32Accumulator(mem memory.Allocator, capacity int) *Accumulator[float32] {
	return newAccumulator[float32](array.NewFloat32Builder(mem), capacity)
}

// NewFloat64Accumulator creates an accumulator for float64 columns.
func NewFloat64Accumulator(mem memory.Allocator, capacity int) *Accumulator[float64] {
	return newAccumulator[float64](array.NewFloat64Builder(mem), capacity)
}

// NewStringAccumulator creates an accumulator for UTF-8 text columns.
func NewStringAccumulator(mem memory.Allocator, capacity int) *Accumulator[string] {
	return newAccumulator[string](array.NewStringBuilder(mem), capacity)
}

// NewBinaryAccumulator creates an accumulator for opaque binary columns.
func NewBinaryAccumulator(mem memory.Allocator, capacity int) *Accumulator[[]byte] {
	return newAccumulator[[]byte](array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary), capacity)
}

// Append appends a present value.
func (a *Accumulator[T]) Append(v T) {
	a.b.Append(v)
	a.def = append(a.def, defLevelPresent)
}

// AppendNull appends a null.
func (a *Accumulator[T]) AppendNull() {
	a.b.AppendNull()
	a.def = append(a.def, defLevelNull)
}

// Len returns the number of values appended so far.
func (a *Accumulator[T]) Len() int { return len(a.def) }

// Finish freezes the accumulated values into an immutable leaf column and
// resets the accumulator.
func (a *Accumulator[T]) Finish() LeafColumn {
	leaf := LeafColumn{Array: a.b.NewArray(), DefLevels: a.def}
	a.def = nil
	return leaf
}

// Release frees the builder memory.
func (a *Accumulator[T]) Release() {
	a.b.Release()
}
