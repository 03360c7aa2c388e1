// Package mmap provides read-only memory-mapped access to local input files
package mmap

import (
	"fmt"
	"os"
	"sync"
)

// Reader is a read-only view of a whole file. On platforms without mmap
// support the file is read into memory instead.
type Reader struct {
	file   *os.File
	data   []byte
	mapped bool

	closeOnce sync.Once
	closeErr  error
}

// Open maps path read-only. An empty file yields an empty, unmapped Reader.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	size := stat.Size()
	if size == 0 {
		return &Reader{file: file}, nil
	}
	if int64(int(size)) != size {
		file.Close()
		return nil, fmt.Errorf("file too large to map: %d bytes", size)
	}

	data, err := mmap(int(file.Fd()), int(size))
	if err != nil {
		data, err = os.ReadFile(path) //nolint:gosec
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return &Reader{file: file, data: data}, nil
	}

	// Advisory only
	_ = madvise(data, madvSequential)

	return &Reader{file: file, data: data, mapped: true}, nil
}

// Bytes returns the file contents. The slice is invalid after Close.
func (r *Reader) Bytes() []byte { return r.data }

// Len returns the file size in bytes
func (r *Reader) Len() int { return len(r.data) }

// Mapped reports whether the contents are memory-mapped
func (r *Reader) Mapped() bool { return r.mapped }

// Close unmaps the file and closes it. It is safe to call more than once.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		if r.mapped {
			if err := munmap(r.data); err != nil {
				r.closeErr = fmt.Errorf("failed to munmap: %w", err)
			}
		}
		r.data = nil
		if err := r.file.Close(); err != nil && r.closeErr == nil {
			r.closeErr = err
		}
	})
	return r.closeErr
}
