package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/dta2parquet/pkg/config"
	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

var version = "0.1.0"

const (
	exitOK         = 0
	exitFailure    = 1
	exitInputError = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "dta2parquet: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	if errors.IsInputError(err) {
		return exitInputError
	}
	return exitFailure
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "dta2parquet <infile> <outfile> [compression]",
		Short: "Convert Stata .dta files to Parquet",
		Long: `dta2parquet converts a Stata .dta file (releases 113, 114, 117 and 118) into a
single-row-group Parquet file. Missing values become nulls; value labels and
variable metadata are stored in the Parquet footer.

Locations may be local paths, s3://bucket/key or gs://bucket/object. Inputs
compressed with gzip, zstd, lz4 or snappy are detected and decompressed.

The optional compression argument is a codec expression such as snappy,
zstd(9), gzip or brotli(5). It overrides --compression.`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile, cmd, args[2:]...)
			if err != nil {
				return err
			}
			return convert(cmd.Context(), cfg, args[0], args[1])
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "json", "Log encoding (json, console)")

	f := root.Flags()
	f.IntP("workers", "w", runtime.NumCPU(), "Maximum decoded chunks in flight")
	f.Int("chunk-rows", 10000, "Observations decoded per task")
	f.String("compression", "snappy", "Parquet codec, e.g. snappy, zstd(9), gzip(6), brotli, lz4, uncompressed")
	f.Int64("data-page-size", 0, "Target Parquet data page size in bytes (0 = writer default)")
	f.String("metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	f.String("trace-file", "", "Write trace spans as JSON to this path (- for stdout)")
	f.StringSlice("profile", nil, "Capture pprof profiles: cpu, memory, block, mutex, goroutine, trace")
	f.String("profile-dir", "profiles", "Directory receiving captured profiles")
	f.Bool("no-value-labels", false, "Skip parsing value-label tables")
	f.Bool("no-dictionary", false, "Do not store the Stata dictionary in the Parquet footer")

	root.AddCommand(
		newInspectCommand(stdout, &configFile),
		newConfigCommand(stdout, &configFile),
		newVersionCommand(stdout),
	)
	return root
}

// loadConfig layers configFile, the environment and cmd's flags. A positional
// compression argument wins over every other source.
func loadConfig(configFile string, cmd *cobra.Command, compression ...string) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if len(compression) > 0 {
		cfg.Output.Compression = compression[0]
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newVersionCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "dta2parquet v%s\n", version)
			fmt.Fprintf(stdout, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(stdout, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newConfigCommand(stdout io.Writer, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile, cmd)
			if err != nil {
				return err
			}
			return cfg.Dump(stdout)
		},
	}
}
