package columnar

import (
	"context"
	"io"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/metadata"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"golang.org/x/sync/errgroup"

	cols "github.com/ajitpratap0/dta2parquet/pkg/columnar"
	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// WriteRowGroup writes chunks as a Parquet file with a single row group.
// Every chunk holds one leaf per schema field, in schema order. Each column
// is encoded by its own goroutine, which appends that column's leaves from
// every chunk in chunk order and then finishes the column's pages. Closing
// the row group only copies the finished pages out in column order.
func WriteRowGroup(ctx context.Context, w io.Writer, schema *cols.Schema, chunks []cols.Chunk, cfg *WriterConfig) (*WriteStats, error) {
	if cfg == nil {
		cfg = DefaultWriterConfig()
	}

	rows, err := checkChunks(schema, chunks)
	if err != nil {
		return nil, err
	}

	props := cfg.properties()
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(cfg.allocator()))

	pqSchema, err := pqarrow.ToParquet(schema.Arrow(), props, arrowProps)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEncode, "failed to convert schema")
	}

	cw := &countingWriter{w: w}
	fw := file.NewParquetWriter(cw, pqSchema.Root(),
		file.WithWriterProps(props),
		file.WithWriteMetadata(footerMetadata(cfg.Metadata)))

	rgw := fw.AppendBufferedRowGroup()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < schema.NumFields(); i++ {
		colWriter, err := rgw.Column(i)
		if err != nil {
			_ = g.Wait()
			return nil, errors.Wrap(err, errors.ErrorTypeEncode, "failed to open column writer").
				WithDetail("column", schema.Field(i).Name)
		}

		g.Go(func() error {
			wctx := pqarrow.NewArrowWriteContext(gctx, &arrowProps)
			for _, chunk := range chunks {
				if err := gctx.Err(); err != nil {
					return err
				}
				leaf := chunk[i]
				if err := pqarrow.WriteArrowToColumn(wctx, colWriter, leaf.Array, leaf.DefLevels, nil, true); err != nil {
					return errors.Wrap(err, errors.ErrorTypeEncode, "failed to encode column").
						WithDetail("column", schema.Field(i).Name)
				}
			}
			if err := finishColumn(colWriter); err != nil {
				return errors.Wrap(err, errors.ErrorTypeEncode, "failed to flush column").
					WithDetail("column", schema.Field(i).Name)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := rgw.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEncode, "failed to close row group")
	}
	if err := fw.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to write parquet footer")
	}

	return &WriteStats{Rows: rows, Columns: schema.NumFields(), Bytes: cw.n}, nil
}

// pageFlusher is implemented by every typed column writer.
type pageFlusher interface {
	FlushBufferedDataPages() error
}

// finishColumn encodes and compresses everything cw still buffers so the
// column's Close only copies finished pages. FallbackToPlain is the exported
// call that writes a dictionary page exactly once; no values follow it, so
// the data pages stay dictionary encoded.
func finishColumn(cw file.ColumnChunkWriter) error {
	cw.FallbackToPlain()
	if f, ok := cw.(pageFlusher); ok {
		return f.FlushBufferedDataPages()
	}
	return nil
}

// checkChunks verifies every chunk has one leaf per field with the field's
// type and a common length, and returns the total row count.
func checkChunks(schema *cols.Schema, chunks []cols.Chunk) (int64, error) {
	var rows int64
	for c, chunk := range chunks {
		if len(chunk) != schema.NumFields() {
			return 0, errors.Newf(errors.ErrorTypeInternal,
				"chunk %d has %d columns, schema has %d", c, len(chunk), schema.NumFields())
		}
		n := chunk.NumRows()
		for i, leaf := range chunk {
			field := schema.Field(i)
			if !arrow.TypeEqual(leaf.Array.DataType(), field.Type.ArrowType()) {
				return 0, errors.Newf(errors.ErrorTypeInternal,
					"chunk %d column %s has type %s, schema says %s", c, field.Name, leaf.Array.DataType(), field.Type)
			}
			if leaf.Len() != n || len(leaf.DefLevels) != n {
				return 0, errors.Newf(errors.ErrorTypeInternal,
					"chunk %d column %s has %d values, expected %d", c, field.Name, leaf.Len(), n)
			}
		}
		rows += int64(n)
	}
	return rows, nil
}

func footerMetadata(kv map[string]string) metadata.KeyValueMetadata {
	md := metadata.NewKeyValueMetadata()
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		md.Append(k, kv[k])
	}
	return md
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
