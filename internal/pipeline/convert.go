// Package pipeline orchestrates a .dta to Parquet conversion: metadata and
// strl parsing, concurrent ordered row decoding, and the column writer.
package pipeline

import (
	"context"
	"io"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/dta2parquet/pkg/columnar"
	"github.com/ajitpratap0/dta2parquet/pkg/errors"
	parquetfmt "github.com/ajitpratap0/dta2parquet/pkg/formats/columnar"
	"github.com/ajitpratap0/dta2parquet/pkg/metrics"
	"github.com/ajitpratap0/dta2parquet/pkg/observability"
	"github.com/ajitpratap0/dta2parquet/pkg/stata"
)

// DefaultChunkRows is the number of observations decoded per task
const DefaultChunkRows = 10000

// Options configures a Converter
type Options struct {
	// Schema derives the output schema (default stata.MakeSchema)
	Schema stata.SchemaFunc
	// Workers bounds the decoded chunks in flight (default runtime.NumCPU)
	Workers int
	// ChunkRows is the number of observations per decode task
	ChunkRows int
	// ValueLabels parses value-label tables and attaches them to variables
	ValueLabels bool
	// Dictionary stores the Stata dictionary in the Parquet footer
	Dictionary bool
	// Writer configures the Parquet writer
	Writer *parquetfmt.WriterConfig
	// Metrics receives conversion metrics
	Metrics *metrics.Collector
	// Tracer traces conversion stages
	Tracer *observability.StageTracer
}

// DefaultOptions returns options for a standard conversion
func DefaultOptions() Options {
	return Options{
		Schema:      stata.MakeSchema,
		Workers:     runtime.NumCPU(),
		ChunkRows:   DefaultChunkRows,
		ValueLabels: true,
		Dictionary:  true,
		Writer:      parquetfmt.DefaultWriterConfig(),
		Metrics:     metrics.NewCollector("converter"),
		Tracer:      observability.NewStageTracer(nil),
	}
}

// Summary describes a finished conversion
type Summary struct {
	Release          int
	Variables        int
	Observations     int
	Chunks           int
	StrlEntries      int
	ValueLabelTables int
	LabeledVariables int
	BytesWritten     int64
	Duration         time.Duration
}

// RowRange is a half-open range of observations
type RowRange struct {
	Start, End int
}

// PlanRanges splits nobs observations into consecutive ranges of at most
// chunkRows rows.
func PlanRanges(nobs, chunkRows int) []RowRange {
	if nobs <= 0 || chunkRows <= 0 {
		return nil
	}
	ranges := make([]RowRange, 0, (nobs+chunkRows-1)/chunkRows)
	for start := 0; start < nobs; start += chunkRows {
		ranges = append(ranges, RowRange{Start: start, End: min(start+chunkRows, nobs)})
	}
	return ranges
}

// Converter turns in-memory .dta files into Parquet
type Converter struct {
	opts   Options
	logger *zap.Logger
}

// NewConverter creates a converter. Zero-valued options take their defaults.
func NewConverter(opts Options, logger *zap.Logger) *Converter {
	def := DefaultOptions()
	if opts.Schema == nil {
		opts.Schema = def.Schema
	}
	if opts.Workers == 0 {
		opts.Workers = def.Workers
	}
	if opts.ChunkRows == 0 {
		opts.ChunkRows = def.ChunkRows
	}
	if opts.Writer == nil {
		opts.Writer = def.Writer
	}
	if opts.Metrics == nil {
		opts.Metrics = def.Metrics
	}
	if opts.Tracer == nil {
		opts.Tracer = def.Tracer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		opts:   opts,
		logger: logger.With(zap.String("component", "converter")),
	}
}

// Convert parses input and writes it to out as a single-row-group Parquet
// file. Nothing is written to out unless every observation decoded.
func (c *Converter) Convert(ctx context.Context, input []byte, out io.Writer) (summary *Summary, err error) {
	start := time.Now()
	m := c.opts.Metrics
	defer func() { m.Conversion(err) }()
	m.InputBytes(len(input))

	if c.opts.ChunkRows < 1 {
		return nil, errors.Newf(errors.ErrorTypeConfig, "chunk rows must be at least 1, got %d", c.opts.ChunkRows)
	}

	ctx, span := c.opts.Tracer.Start(ctx, "convert")
	defer span.End()
	defer func() {
		if err != nil {
			span.Fail(err)
		}
	}()

	var (
		meta *stata.Metadata
		fm   *stata.FileMap
	)
	err = c.stage(ctx, "parse_metadata", func(ctx context.Context, s *observability.Span) error {
		var perr error
		meta, fm, perr = stata.ParseMetadata(input)
		if perr != nil {
			return perr
		}
		s.SetAttribute("release", meta.Release)
		s.SetAttribute("variables", meta.NVars)
		s.SetAttribute("observations", meta.NObs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("metadata parsed",
		zap.Int("release", meta.Release),
		zap.Int("variables", meta.NVars),
		zap.Int("observations", meta.NObs),
		zap.Int("row_size", meta.RowSize))

	// Observations of a file without variables occupy no bytes, so N is
	// unchecked against the data block and there is nothing to decode.
	nobs := meta.NObs
	if meta.RowSize == 0 && nobs > 0 {
		c.logger.Warn("file has no variables, writing an empty table", zap.Int("observations", nobs))
		nobs = 0
	}

	summary = &Summary{Release: meta.Release, Variables: meta.NVars, Observations: nobs}

	if c.opts.ValueLabels {
		err = c.stage(ctx, "parse_value_labels", func(ctx context.Context, s *observability.Span) error {
			tables, perr := stata.ParseValueLabels(fm.ValueLabels, meta.Release)
			if perr != nil {
				return perr
			}
			summary.ValueLabelTables = len(tables)
			summary.LabeledVariables = stata.AttachValueLabels(meta, tables)
			s.SetAttribute("tables", len(tables))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	var strls *stata.StrlTable
	err = c.stage(ctx, "parse_strls", func(ctx context.Context, s *observability.Span) error {
		var perr error
		strls, perr = stata.ParseStrls(fm.Strls, meta.Release)
		if perr != nil {
			return perr
		}
		s.SetAttribute("entries", strls.Len())
		return nil
	})
	if err != nil {
		return nil, err
	}
	summary.StrlEntries = strls.Len()

	schema, err := c.opts.Schema(meta.Vars)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "schema function failed")
	}

	var chunks []columnar.Chunk
	defer func() {
		for _, chunk := range chunks {
			chunk.Release()
		}
	}()

	err = c.stage(ctx, "decode", func(ctx context.Context, s *observability.Span) error {
		ranges := PlanRanges(nobs, c.opts.ChunkRows)
		tasks := make([]Task[columnar.Chunk], len(ranges))
		for i, r := range ranges {
			tasks[i] = func(ctx context.Context) (columnar.Chunk, error) {
				m.TaskStarted()
				chunk, derr := stata.DecodeRows(meta, fm, strls, schema, r.Start, r.End)
				if derr != nil {
					m.TaskConsumed()
					return nil, derr
				}
				m.RowsDecoded(r.End - r.Start)
				m.ChunkDecoded()
				return chunk, nil
			}
		}

		chunks = make([]columnar.Chunk, 0, len(ranges))
		consume := func(seq int, chunk columnar.Chunk) error {
			m.TaskConsumed()
			chunks = append(chunks, chunk)
			return nil
		}
		s.SetAttribute("chunks", len(tasks))
		return RunOrdered(ctx, tasks, consume, c.opts.Workers)
	})
	if err != nil {
		return nil, err
	}
	summary.Chunks = len(chunks)
	c.logger.Debug("decode finished", zap.Int("chunks", len(chunks)), zap.Int("workers", c.opts.Workers))

	wcfg := *c.opts.Writer
	if c.opts.Dictionary {
		dict, derr := stata.Describe(meta).JSON()
		if derr != nil {
			return nil, errors.Wrap(derr, errors.ErrorTypeEncode, "failed to encode dictionary")
		}
		md := make(map[string]string, len(wcfg.Metadata)+1)
		for k, v := range wcfg.Metadata {
			md[k] = v
		}
		md[parquetfmt.DictionaryMetadataKey] = string(dict)
		wcfg.Metadata = md
	}

	var stats *parquetfmt.WriteStats
	err = c.stage(ctx, "write", func(ctx context.Context, s *observability.Span) error {
		var werr error
		stats, werr = parquetfmt.WriteRowGroup(ctx, out, schema, chunks, &wcfg)
		if werr != nil {
			return werr
		}
		s.SetAttribute("bytes", stats.Bytes)
		s.SetAttribute("compression", wcfg.Compression.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stats.Rows != int64(nobs) {
		return nil, errors.Newf(errors.ErrorTypeInternal, "wrote %d rows, expected %d", stats.Rows, nobs)
	}
	m.OutputBytes(stats.Bytes)

	summary.BytesWritten = stats.Bytes
	summary.Duration = time.Since(start)
	c.logger.Info("row group written",
		zap.Int64("rows", stats.Rows),
		zap.Int("columns", stats.Columns),
		zap.Int64("bytes", stats.Bytes),
		zap.String("compression", wcfg.Compression.String()),
		zap.Duration("duration", summary.Duration))

	return summary, nil
}

// stage runs fn inside a span and a duration timer named stage
func (c *Converter) stage(ctx context.Context, stage string, fn func(context.Context, *observability.Span) error) error {
	timer := c.opts.Metrics.Stage(stage)
	defer timer.Stop()
	return c.opts.Tracer.Trace(ctx, stage, fn)
}
