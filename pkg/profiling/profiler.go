// Package profiling captures pprof profiles and execution traces of a
// conversion run.
package profiling

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// ProfileType represents the type of profiling to perform
type ProfileType string

const (
	CPUProfile       ProfileType = "cpu"
	MemoryProfile    ProfileType = "memory"
	BlockProfile     ProfileType = "block"
	MutexProfile     ProfileType = "mutex"
	GoroutineProfile ProfileType = "goroutine"
	TraceProfile     ProfileType = "trace"
)

// ParseType validates a profile type name
func ParseType(s string) (ProfileType, error) {
	switch t := ProfileType(s); t {
	case CPUProfile, MemoryProfile, BlockProfile, MutexProfile, GoroutineProfile, TraceProfile:
		return t, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unknown profile type %q", s)
	}
}

// Config selects the profiles to collect
type Config struct {
	Types []ProfileType
	// OutputDir receives <type>_<timestamp>.prof files
	OutputDir string
}

// Profiler collects the configured profiles between Start and Stop
type Profiler struct {
	config    Config
	logger    *zap.Logger
	stamp     string
	startTime time.Time
	cpuFile   *os.File
	traceFile *os.File
}

// NewProfiler creates a profiler
func NewProfiler(config Config, logger *zap.Logger) *Profiler {
	if config.OutputDir == "" {
		config.OutputDir = "."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profiler{config: config, logger: logger}
}

// Start begins CPU profiling and tracing and enables the sampled profiles
func (p *Profiler) Start() error {
	p.startTime = time.Now()
	p.stamp = p.startTime.Format("20060102T150405")

	if err := os.MkdirAll(p.config.OutputDir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create profile directory")
	}

	for _, t := range p.config.Types {
		switch t {
		case CPUProfile:
			f, err := p.create(t, "prof")
			if err != nil {
				return err
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				_ = f.Close()
				return errors.Wrap(err, errors.ErrorTypeInternal, "failed to start CPU profiling")
			}
			p.cpuFile = f
		case TraceProfile:
			f, err := p.create(t, "out")
			if err != nil {
				return err
			}
			if err := trace.Start(f); err != nil {
				_ = f.Close()
				return errors.Wrap(err, errors.ErrorTypeInternal, "failed to start tracing")
			}
			p.traceFile = f
		case BlockProfile:
			runtime.SetBlockProfileRate(1)
		case MutexProfile:
			runtime.SetMutexProfileFraction(1)
		}
	}

	p.logger.Debug("profiling started",
		zap.String("output_dir", p.config.OutputDir),
		zap.Any("types", p.config.Types))
	return nil
}

// Stop ends CPU profiling and tracing and writes the snapshot profiles.
// The first failure is returned after every profile has been attempted.
func (p *Profiler) Stop() error {
	var first error
	keep := func(err error) {
		if err != nil {
			p.logger.Error("failed to save profile", zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		keep(p.cpuFile.Close())
		p.cpuFile = nil
	}
	if p.traceFile != nil {
		trace.Stop()
		keep(p.traceFile.Close())
		p.traceFile = nil
	}

	for _, t := range p.config.Types {
		switch t {
		case MemoryProfile:
			runtime.GC()
			keep(p.snapshot(t, "heap", 0))
		case BlockProfile:
			keep(p.snapshot(t, "block", 0))
			runtime.SetBlockProfileRate(0)
		case MutexProfile:
			keep(p.snapshot(t, "mutex", 0))
			runtime.SetMutexProfileFraction(0)
		case GoroutineProfile:
			keep(p.snapshot(t, "goroutine", 2))
		}
	}

	p.logger.Debug("profiling completed",
		zap.Duration("duration", time.Since(p.startTime)),
		zap.String("output_dir", p.config.OutputDir))
	return first
}

func (p *Profiler) create(t ProfileType, ext string) (*os.File, error) {
	name := filepath.Join(p.config.OutputDir, fmt.Sprintf("%s_%s.%s", t, p.stamp, ext))
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create profile file").
			WithDetail("path", name)
	}
	return f, nil
}

func (p *Profiler) snapshot(t ProfileType, lookup string, debug int) error {
	f, err := p.create(t, "prof")
	if err != nil {
		return err
	}
	defer f.Close()

	if err := pprof.Lookup(lookup).WriteTo(f, debug); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write profile").
			WithDetail("type", string(t))
	}
	p.logger.Debug("profile saved", zap.String("file", f.Name()))
	return nil
}
