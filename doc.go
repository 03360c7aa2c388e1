// Package dta2parquet converts Stata .dta datasets into Parquet files.
//
// A conversion reads the whole input into memory (memory-mapped for local
// files), parses the header, variable descriptors, value labels and long
// string (strL) table, decodes the observation block in parallel chunks and
// writes a single Parquet row group. Stata missing values, including the
// extended codes .a through .z, become nulls.
//
// # Supported Formats
//
//	113, 114   legacy binary layout (Stata 8 to 12)
//	117        tagged layout (Stata 13)
//	118        tagged layout with UTF-8 text (Stata 14 and later)
//
// Only little-endian files are accepted. Inputs compressed with gzip, zstd, lz4 or
// snappy framing are detected by magic bytes and decompressed first.
//
// # Quick Start
//
//	dta2parquet survey.dta survey.parquet zstd(9)
//	dta2parquet s3://raw/survey.dta.gz gs://curated/survey.parquet
//	dta2parquet inspect survey.dta
//
// Or from Go:
//
//	conv := pipeline.NewConverter(pipeline.DefaultOptions(), logger)
//	summary, err := conv.Convert(ctx, data, w)
//
// # Key Packages
//
//	pkg/stata        - .dta parsing, missing values, row decoding
//	pkg/columnar     - Arrow column accumulators and schemas
//	pkg/formats/columnar - Parquet row group writer and reader
//	internal/pipeline    - ordered concurrent decode and conversion stages
//	pkg/storage      - local, S3 and GCS locations with atomic publish
//	pkg/compression  - whole-file input decompression
//	pkg/config       - layered YAML, environment and flag configuration
//	pkg/errors       - typed errors
//	pkg/logger       - structured logging
//	pkg/metrics      - Prometheus metrics and textfile export
//	pkg/observability - OpenTelemetry stage tracing
//	pkg/profiling    - pprof capture
//
// # Output
//
// Every Parquet column is optional. Numeric Stata types map to int8, int16,
// int32, float32 and float64; fixed strings to UTF-8; strL columns to binary.
// Unless disabled, the footer key "stata.dictionary" holds a JSON description
// of the variables, their formats, labels and value labels.
package dta2parquet
