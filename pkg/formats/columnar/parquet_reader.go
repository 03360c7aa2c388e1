package columnar

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// ReadTable reads a whole Parquet file into memory along with its footer
// key/value metadata. The caller releases the table.
func ReadTable(ctx context.Context, r parquet.ReaderAtSeeker, mem memory.Allocator) (arrow.Table, map[string]string, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	pf, err := file.NewParquetReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open parquet file")
	}
	defer pf.Close()

	kv := footer(pf)

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create arrow reader")
	}

	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read parquet table")
	}
	return tbl, kv, nil
}

// ReadMetadata returns the footer key/value metadata and row count of a
// Parquet file without reading any column data.
func ReadMetadata(r parquet.ReaderAtSeeker) (map[string]string, int64, error) {
	pf, err := file.NewParquetReader(r)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrorTypeFile, "failed to open parquet file")
	}
	defer pf.Close()
	return footer(pf), pf.NumRows(), nil
}

func footer(pf *file.Reader) map[string]string {
	kv := make(map[string]string)
	md := pf.MetaData().KeyValueMetadata()
	keys, values := md.Keys(), md.Values()
	for i := range keys {
		kv[keys[i]] = values[i]
	}
	return kv
}
