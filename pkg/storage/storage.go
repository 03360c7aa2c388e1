// Package storage opens conversion inputs and publishes conversion outputs.
//
// Inputs are read whole into memory: local files are memory-mapped, object
// store inputs are downloaded. Compressed inputs are detected and
// decompressed transparently.
//
// Outputs are staged in a temporary file and only become visible on Commit.
// Local outputs are renamed into place; object store outputs are uploaded.
// Abort discards the staged file, so a failed conversion never leaves a
// partial output behind.
package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/dta2parquet/pkg/compression"
	"github.com/ajitpratap0/dta2parquet/pkg/config"
	"github.com/ajitpratap0/dta2parquet/pkg/errors"
	"github.com/ajitpratap0/dta2parquet/pkg/mmap"
)

// remote is an object store backend
type remote interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Upload(ctx context.Context, bucket, key string, body io.Reader) error
	Close() error
}

// Storage resolves locations to inputs and outputs. Object store clients
// are created on first use.
type Storage struct {
	cfg    config.StorageConfig
	logger *zap.Logger

	mu      sync.Mutex
	remotes map[Scheme]remote
}

// New creates a Storage
func New(cfg config.StorageConfig, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		cfg:     cfg,
		logger:  logger,
		remotes: make(map[Scheme]remote),
	}
}

func (s *Storage) remote(ctx context.Context, scheme Scheme) (remote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.remotes[scheme]; ok {
		return r, nil
	}

	var (
		r   remote
		err error
	)
	switch scheme {
	case SchemeS3:
		r, err = newS3Remote(ctx, s.cfg)
	case SchemeGS:
		r, err = newGCSRemote(ctx, s.cfg)
	default:
		return nil, errors.Newf(errors.ErrorTypeInternal, "no remote backend for scheme %q", scheme)
	}
	if err != nil {
		return nil, err
	}
	s.remotes[scheme] = r
	return r, nil
}

// Close releases object store clients
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var first error
	for scheme, r := range s.remotes {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
		delete(s.remotes, scheme)
	}
	return first
}

// Input is the raw, decompressed content of an input location
type Input struct {
	// Location is where the input was read from
	Location Location
	// Compression is the detected whole-file compression
	Compression compression.Algorithm
	// StoredSize is the size of the input before decompression
	StoredSize int

	data    []byte
	release func() error
}

// Bytes returns the input content. The slice is invalid after Close.
func (in *Input) Bytes() []byte { return in.data }

// Close releases the input's memory mapping, if any
func (in *Input) Close() error {
	in.data = nil
	if in.release == nil {
		return nil
	}
	release := in.release
	in.release = nil
	return release()
}

// Open reads the input at loc
func (s *Storage) Open(ctx context.Context, loc Location) (*Input, error) {
	var (
		raw     []byte
		release func() error
	)

	if loc.Remote() {
		r, err := s.remote(ctx, loc.Scheme)
		if err != nil {
			return nil, err
		}
		raw, err = r.Download(ctx, loc.Bucket, loc.Key)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to download input").
				WithDetail("location", loc.String())
		}
	} else {
		m, err := mmap.Open(loc.Path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input").
				WithDetail("location", loc.String())
		}
		raw, release = m.Bytes(), m.Close
	}

	data, alg, err := compression.Decompress(raw)
	if err != nil {
		if release != nil {
			_ = release()
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to decompress input").
			WithDetail("location", loc.String())
	}

	in := &Input{Location: loc, Compression: alg, StoredSize: len(raw), data: data, release: release}
	if alg != compression.None && release != nil {
		// The decompressed copy no longer references the mapping
		if err := release(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to release input mapping")
		}
		in.release = nil
	}

	s.logger.Debug("input opened",
		zap.String("location", loc.String()),
		zap.String("compression", string(alg)),
		zap.Int("stored_bytes", len(raw)),
		zap.Int("bytes", len(data)))
	return in, nil
}

// Output stages a conversion result until Commit or Abort
type Output struct {
	loc     Location
	file    *os.File
	written int64
	publish func(ctx context.Context, staged *os.File) error
	done    bool
}

// Write appends to the staged file
func (o *Output) Write(p []byte) (int, error) {
	n, err := o.file.Write(p)
	o.written += int64(n)
	return n, err
}

// Written returns the number of bytes staged so far
func (o *Output) Written() int64 { return o.written }

// Location returns the destination
func (o *Output) Location() Location { return o.loc }

// Commit publishes the staged file to its destination
func (o *Output) Commit(ctx context.Context) error {
	if o.done {
		return errors.New(errors.ErrorTypeInternal, "output already finished")
	}
	o.done = true

	if err := o.publish(ctx, o.file); err != nil {
		o.discard()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to publish output").
			WithDetail("location", o.loc.String())
	}
	return nil
}

// Abort discards the staged file. It is a no-op after Commit.
func (o *Output) Abort() error {
	if o.done {
		return nil
	}
	o.done = true
	return o.discard()
}

func (o *Output) discard() error {
	_ = o.file.Close()
	if err := os.Remove(o.file.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Create stages a new output for loc
func (s *Storage) Create(ctx context.Context, loc Location) (*Output, error) {
	if loc.Remote() {
		r, err := s.remote(ctx, loc.Scheme)
		if err != nil {
			return nil, err
		}
		f, err := os.CreateTemp("", "dta2parquet-*.parquet")
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create staging file")
		}
		return &Output{loc: loc, file: f, publish: func(ctx context.Context, staged *os.File) error {
			defer func() {
				staged.Close()
				os.Remove(staged.Name())
			}()
			if _, err := staged.Seek(0, io.SeekStart); err != nil {
				return err
			}
			s.logger.Debug("uploading output", zap.String("location", loc.String()))
			return r.Upload(ctx, loc.Bucket, loc.Key, staged)
		}}, nil
	}

	dir, base := filepath.Split(loc.Path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output").
			WithDetail("location", loc.String())
	}
	return &Output{loc: loc, file: f, publish: publishLocal(loc.Path)}, nil
}

func publishLocal(dest string) func(context.Context, *os.File) error {
	return func(_ context.Context, staged *os.File) error {
		if err := staged.Sync(); err != nil {
			return err
		}
		if err := staged.Chmod(0o644); err != nil {
			return err
		}
		if err := staged.Close(); err != nil {
			return err
		}
		return os.Rename(staged.Name(), dest)
	}
}
