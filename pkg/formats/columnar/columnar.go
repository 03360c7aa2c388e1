// Package columnar writes decoded column chunks as Apache Parquet
package columnar

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"

	"github.com/ajitpratap0/dta2parquet/pkg/config"
)

// DictionaryMetadataKey is the footer key holding the Stata dictionary
const DictionaryMetadataKey = "stata.dictionary"

// WriterConfig configures the Parquet writer
type WriterConfig struct {
	// Compression applies to every column
	Compression config.Compression
	// DataPageSize is the target page size in bytes (0 = library default)
	DataPageSize int64
	// Dictionary enables dictionary encoding
	Dictionary bool
	// Metadata is written as footer key/value pairs in key order
	Metadata map[string]string
	// Allocator backs encode buffers (nil = default allocator)
	Allocator memory.Allocator
}

// DefaultWriterConfig returns default writer configuration
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Compression: config.Compression{Name: "snappy", Codec: compress.Codecs.Snappy},
		Dictionary:  true,
	}
}

// WriteStats reports what a write produced
type WriteStats struct {
	Rows    int64
	Columns int
	Bytes   int64
}

func (c *WriterConfig) allocator() memory.Allocator {
	if c.Allocator != nil {
		return c.Allocator
	}
	return memory.DefaultAllocator
}

func (c *WriterConfig) properties() *parquet.WriterProperties {
	opts := []parquet.WriterProperty{
		parquet.WithAllocator(c.allocator()),
		parquet.WithCompression(c.Compression.Codec),
		parquet.WithDictionaryDefault(c.Dictionary),
	}
	if c.Compression.Leveled {
		opts = append(opts, parquet.WithCompressionLevel(c.Compression.Level))
	}
	if c.DataPageSize > 0 {
		opts = append(opts, parquet.WithDataPageSize(c.DataPageSize))
	}
	return parquet.NewWriterProperties(opts...)
}
