package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/dta2parquet/internal/pipeline"
	"github.com/ajitpratap0/dta2parquet/pkg/config"
	"github.com/ajitpratap0/dta2parquet/pkg/errors"
	parquetfmt "github.com/ajitpratap0/dta2parquet/pkg/formats/columnar"
	"github.com/ajitpratap0/dta2parquet/pkg/logger"
	"github.com/ajitpratap0/dta2parquet/pkg/metrics"
	"github.com/ajitpratap0/dta2parquet/pkg/observability"
	"github.com/ajitpratap0/dta2parquet/pkg/profiling"
	"github.com/ajitpratap0/dta2parquet/pkg/storage"
)

// VersionMetadataKey records the converter version in the Parquet footer
const VersionMetadataKey = "dta2parquet.version"

func newLogger(ctx context.Context, cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Encoding: cfg.Logging.Format})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create logger")
	}
	return log.With(logger.Fields(ctx)...), nil
}

// convert runs one conversion from inArg to outArg. The output location is
// untouched unless the whole file converted.
func convert(ctx context.Context, cfg *config.Config, inArg, outArg string) (err error) {
	inLoc, err := storage.ParseLocation(inArg)
	if err != nil {
		return err
	}
	outLoc, err := storage.ParseLocation(outArg)
	if err != nil {
		return err
	}
	codec, err := cfg.Output.Codec()
	if err != nil {
		return err
	}

	ctx = logger.NewContext(ctx, logger.RunIDKey, uuid.NewString())
	ctx = logger.NewContext(ctx, logger.InputKey, inLoc.String())
	ctx = logger.NewContext(ctx, logger.OutputKey, outLoc.String())
	log, err := newLogger(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if path := cfg.Observability.TraceFile; path != "" {
		tc := observability.DefaultTracingConfig()
		tc.ServiceVersion = version
		tc.OutputPath = path
		tc.SamplingRate = cfg.Observability.TraceSampleRate
		shutdown, terr := observability.InitTracing(tc)
		if terr != nil {
			return errors.Wrap(terr, errors.ErrorTypeConfig, "failed to initialize tracing")
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := shutdown(sctx); serr != nil {
				log.Warn("failed to flush traces", zap.Error(serr))
			}
		}()
	}

	if len(cfg.Observability.Profiles) > 0 {
		pc := profiling.Config{OutputDir: cfg.Observability.ProfileDir}
		for _, name := range cfg.Observability.Profiles {
			t, perr := profiling.ParseType(name)
			if perr != nil {
				return perr
			}
			pc.Types = append(pc.Types, t)
		}
		profiler := profiling.NewProfiler(pc, log)
		if perr := profiler.Start(); perr != nil {
			return perr
		}
		defer func() {
			if perr := profiler.Stop(); perr != nil {
				log.Warn("failed to save profiles", zap.Error(perr))
			}
		}()
	}

	collector := metrics.NewCollector("dta2parquet")
	if path := cfg.Observability.MetricsFile; path != "" {
		defer func() {
			if serr := collector.SampleProcess(); serr != nil {
				log.Warn("failed to sample process metrics", zap.Error(serr))
			}
			if werr := metrics.WriteTextfile(path); werr != nil {
				log.Error("failed to write metrics", zap.String("path", path), zap.Error(werr))
				if err == nil {
					err = errors.Wrap(werr, errors.ErrorTypeFile, "failed to write metrics")
				}
			}
		}()
	}

	store := storage.New(cfg.Storage, log)
	defer store.Close()

	in, err := store.Open(ctx, inLoc)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := store.Create(ctx, outLoc)
	if err != nil {
		return err
	}

	conv := pipeline.NewConverter(pipeline.Options{
		Workers:     cfg.Performance.Workers,
		ChunkRows:   cfg.Performance.ChunkRows,
		ValueLabels: cfg.Output.ValueLabels,
		Dictionary:  cfg.Output.StataDictionary,
		Writer: &parquetfmt.WriterConfig{
			Compression:  codec,
			DataPageSize: cfg.Output.DataPageSize,
			Dictionary:   cfg.Output.DictionaryEncoding,
			Metadata:     map[string]string{VersionMetadataKey: version},
		},
		Metrics: collector,
	}, log)

	summary, err := conv.Convert(ctx, in.Bytes(), out)
	if err != nil {
		if aerr := out.Abort(); aerr != nil {
			log.Warn("failed to discard partial output", zap.Error(aerr))
		}
		log.Error("conversion failed", zap.Error(err))
		return err
	}
	if err := out.Commit(ctx); err != nil {
		log.Error("failed to publish output", zap.Error(err))
		return err
	}

	log.Info("conversion complete",
		zap.Int("release", summary.Release),
		zap.Int("variables", summary.Variables),
		zap.Int("observations", summary.Observations),
		zap.String("input_compression", string(in.Compression)),
		zap.Int("input_bytes", in.StoredSize),
		zap.Int64("output_bytes", summary.BytesWritten),
		zap.Duration("duration", summary.Duration))
	return nil
}
