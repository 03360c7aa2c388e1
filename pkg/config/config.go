// Package config provides the configuration system for dta2parquet.
//
// The configuration is organized into logical sections:
//   - Performance: decode workers and chunk size
//   - Output: Parquet codec, page size, footer metadata
//   - Logging: level and encoding
//   - Observability: metrics textfile, trace output and pprof profiles
//   - Storage: object store endpoints and regions
//
// Values are layered by Load: built-in defaults, an optional YAML file,
// DTA2PARQUET_* environment variables, then command-line flags.
package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
	"github.com/ajitpratap0/dta2parquet/pkg/profiling"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "DTA2PARQUET"

// Config is the effective configuration of a conversion run
type Config struct {
	// Performance settings control decode parallelism
	Performance PerformanceConfig `mapstructure:"performance" yaml:"performance"`

	// Output settings for the Parquet file
	Output OutputConfig `mapstructure:"output" yaml:"output"`

	// Logging settings
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Observability settings for metrics and tracing
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`

	// Storage settings for s3:// and gs:// locations
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
}

// PerformanceConfig contains decode parallelism settings.
type PerformanceConfig struct {
	// Workers bounds the number of decoded chunks in flight
	Workers int `mapstructure:"workers" yaml:"workers"`
	// ChunkRows is the number of observations per decode task
	ChunkRows int `mapstructure:"chunk_rows" yaml:"chunk_rows"`
}

// OutputConfig contains Parquet writer settings.
type OutputConfig struct {
	// Compression is a codec expression such as "snappy" or "zstd(9)"
	Compression string `mapstructure:"compression" yaml:"compression"`
	// DataPageSize is the target data page size in bytes (0 = writer default)
	DataPageSize int64 `mapstructure:"data_page_size" yaml:"data_page_size"`
	// DictionaryEncoding enables Parquet dictionary encoding
	DictionaryEncoding bool `mapstructure:"dictionary_encoding" yaml:"dictionary_encoding"`
	// ValueLabels parses value-label tables and attaches them to variables
	ValueLabels bool `mapstructure:"value_labels" yaml:"value_labels"`
	// StataDictionary stores the variable dictionary in the Parquet footer
	StataDictionary bool `mapstructure:"stata_dictionary" yaml:"stata_dictionary"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ObservabilityConfig contains metrics and tracing settings.
type ObservabilityConfig struct {
	// MetricsFile receives a prometheus textfile after the run ("" = off)
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
	// TraceFile receives exported spans as JSON ("" = off, "-" = stdout)
	TraceFile string `mapstructure:"trace_file" yaml:"trace_file"`
	// TraceSampleRate controls trace sampling (0.0-1.0)
	TraceSampleRate float64 `mapstructure:"trace_sample_rate" yaml:"trace_sample_rate"`
	// Profiles lists pprof profiles to capture (cpu, memory, block, mutex,
	// goroutine, trace)
	Profiles []string `mapstructure:"profiles" yaml:"profiles"`
	// ProfileDir receives the captured profiles
	ProfileDir string `mapstructure:"profile_dir" yaml:"profile_dir"`
}

// StorageConfig contains object store settings.
type StorageConfig struct {
	S3Region       string `mapstructure:"s3_region" yaml:"s3_region"`
	S3Endpoint     string `mapstructure:"s3_endpoint" yaml:"s3_endpoint"`
	S3UsePathStyle bool   `mapstructure:"s3_use_path_style" yaml:"s3_use_path_style"`
	GCSEndpoint    string `mapstructure:"gcs_endpoint" yaml:"gcs_endpoint"`
}

// flagKeys maps command-line flag names to configuration keys
var flagKeys = map[string]string{
	"workers":        "performance.workers",
	"chunk-rows":     "performance.chunk_rows",
	"compression":    "output.compression",
	"data-page-size": "output.data_page_size",
	"log-level":      "logging.level",
	"log-format":     "logging.format",
	"metrics-file":   "observability.metrics_file",
	"trace-file":     "observability.trace_file",
	"profile":        "observability.profiles",
	"profile-dir":    "observability.profile_dir",
}

// negatedFlags maps "--no-x" switches to the boolean keys they clear
var negatedFlags = map[string]string{
	"no-value-labels": "output.value_labels",
	"no-dictionary":   "output.stata_dictionary",
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Performance: PerformanceConfig{
			Workers:   runtime.NumCPU(),
			ChunkRows: 10000,
		},
		Output: OutputConfig{
			Compression:        "snappy",
			DictionaryEncoding: true,
			ValueLabels:        true,
			StataDictionary:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Observability: ObservabilityConfig{
			TraceSampleRate: 1.0,
			Profiles:        []string{},
			ProfileDir:      "profiles",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("performance.workers", d.Performance.Workers)
	v.SetDefault("performance.chunk_rows", d.Performance.ChunkRows)
	v.SetDefault("output.compression", d.Output.Compression)
	v.SetDefault("output.data_page_size", d.Output.DataPageSize)
	v.SetDefault("output.dictionary_encoding", d.Output.DictionaryEncoding)
	v.SetDefault("output.value_labels", d.Output.ValueLabels)
	v.SetDefault("output.stata_dictionary", d.Output.StataDictionary)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("observability.metrics_file", d.Observability.MetricsFile)
	v.SetDefault("observability.trace_file", d.Observability.TraceFile)
	v.SetDefault("observability.trace_sample_rate", d.Observability.TraceSampleRate)
	v.SetDefault("observability.profiles", d.Observability.Profiles)
	v.SetDefault("observability.profile_dir", d.Observability.ProfileDir)
	v.SetDefault("storage.s3_region", "")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("storage.s3_use_path_style", false)
	v.SetDefault("storage.gcs_endpoint", "")
}

// Load builds the effective configuration. path may be empty; flags may be nil.
// The result is validated before it is returned.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", path)
		}
	}

	// Expand ${VAR} references in string values
	for _, key := range v.AllKeys() {
		if s, ok := v.Get(key).(string); ok && strings.Contains(s, "${") {
			v.Set(key, os.ExpandEnv(s))
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flag")
				}
			}
		}
		for name, key := range negatedFlags {
			if set, err := flags.GetBool(name); err == nil && set {
				v.Set(key, false)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for correctness
func (c *Config) Validate() error {
	if c.Performance.Workers < 1 {
		return errors.Newf(errors.ErrorTypeConfig, "workers must be at least 1, got %d", c.Performance.Workers)
	}
	if c.Performance.ChunkRows < 1 {
		return errors.Newf(errors.ErrorTypeConfig, "chunk_rows must be at least 1, got %d", c.Performance.ChunkRows)
	}
	if _, err := ParseCompression(c.Output.Compression); err != nil {
		return err
	}
	if c.Output.DataPageSize < 0 {
		return errors.New(errors.ErrorTypeConfig, "data_page_size cannot be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "invalid log level %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return errors.Newf(errors.ErrorTypeConfig, "invalid log format %q", c.Logging.Format)
	}
	if c.Observability.TraceSampleRate < 0 || c.Observability.TraceSampleRate > 1 {
		return errors.Newf(errors.ErrorTypeConfig, "trace_sample_rate must be within [0, 1], got %g", c.Observability.TraceSampleRate)
	}
	for _, p := range c.Observability.Profiles {
		if _, err := profiling.ParseType(p); err != nil {
			return err
		}
	}
	return nil
}

// Codec parses the configured compression expression
func (o *OutputConfig) Codec() (Compression, error) {
	return ParseCompression(o.Compression)
}

// Dump writes the configuration as YAML
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}
