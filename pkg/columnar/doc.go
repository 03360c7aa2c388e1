// Package columnar holds the in-memory columnar form that sits between the row
// decoder and the Parquet writer.
//
// # Overview
//
// A Schema is an ordered list of nullable Fields, each carrying one of a closed set
// of ColumnTypes. Every field is a flat leaf, so field index and leaf index are the
// same everywhere in the pipeline.
//
// Decoding appends into one typed Accumulator per column. Finishing an accumulator
// yields a LeafColumn: an immutable Arrow array plus the definition levels the
// Parquet column writer expects (1 for a present value, 0 for null). The leaves of
// one row range form a Chunk.
//
// # Usage Example
//
//	acc := columnar.NewInt16Accumulator(memory.DefaultAllocator, 3)
//	defer acc.Release()
//
//	acc.Append(7)
//	acc.AppendNull()
//	acc.Append(-2)
//
//	leaf := acc.Finish()
//	defer leaf.Release()
//	// leaf.DefLevels == []int16{1, 0, 1}
//
// # Thread Safety
//
// Accumulators are owned by exactly one decode task. Finished leaves and chunks
// are immutable and may be read from any goroutine.
package columnar
