//go:build !linux && !darwin

package mmap

import (
	"errors"
)

var errUnsupported = errors.New("mmap not supported on this platform")

func mmap(int, int) ([]byte, error) { return nil, errUnsupported }

func munmap([]byte) error { return nil }

func madvise([]byte, int) error { return nil }

const madvSequential = 0
