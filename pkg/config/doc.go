// Configuration precedence, lowest first:
//
//  1. Default()
//  2. the YAML file passed to Load
//  3. DTA2PARQUET_* environment variables, with "." replaced by "_"
//     (DTA2PARQUET_PERFORMANCE_WORKERS, DTA2PARQUET_OUTPUT_COMPRESSION)
//  4. command-line flags that were set explicitly
//
// String values may reference the environment with ${VAR_NAME}.
//
// A configuration file looks like:
//
//	performance:
//	  workers: 8
//	  chunk_rows: 50000
//	output:
//	  compression: zstd(9)
//	  value_labels: true
//	logging:
//	  level: debug
//	  format: console
//	observability:
//	  metrics_file: ${TEXTFILE_DIR}/dta2parquet.prom
//	  profiles: [cpu, memory]
//
// The compression expression grammar is
//
//	uncompressed | snappy | lz4 | lz4_raw | gzip[(0-9)] | zstd[(1-22)] | brotli[(0-11)]
//
// with default levels gzip 6, zstd 3 and brotli 4. lz4 writes LZ4_RAW pages.
// lzo is recognized but rejected since no encoder exists for it.
package config
