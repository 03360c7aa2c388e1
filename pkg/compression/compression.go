// Package compression detects and removes whole-file compression around
// .dta inputs. Stata files are commonly shipped gzip'd or zstd'd; the
// converter needs the raw bytes in memory, so inputs are sniffed by their
// magic bytes and decompressed before parsing.
//
// Supported framings:
//   - Gzip (klauspost/compress/gzip)
//   - Zstd (klauspost/compress/zstd)
//   - LZ4 frame format (pierrec/lz4)
//   - Snappy and S2 framed streams (klauspost/compress/s2)
//
// Uncompressed input is returned unchanged without copying.
package compression

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// Algorithm represents a whole-file compression format.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// LZ4 represents the lz4 frame format
	LZ4 Algorithm = "lz4"
	// S2 represents s2 or snappy framed streams
	S2 Algorithm = "s2"
)

var magics = []struct {
	alg   Algorithm
	magic []byte
}{
	{Gzip, []byte{0x1f, 0x8b}},
	{Zstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{LZ4, []byte{0x04, 0x22, 0x4d, 0x18}},
	{S2, []byte{0xff, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}},
	{S2, []byte{0xff, 0x06, 0x00, 0x00, 'S', '2', 's', 'T', 'w', 'O'}},
}

// Detect returns the algorithm whose magic prefixes data, or None.
func Detect(data []byte) Algorithm {
	for _, m := range magics {
		if bytes.HasPrefix(data, m.magic) {
			return m.alg
		}
	}
	return None
}

// NewReader wraps src with a decompressing reader for alg.
func NewReader(alg Algorithm, src io.Reader) (io.ReadCloser, error) {
	switch alg {
	case None:
		return io.NopCloser(src), nil
	case Gzip:
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open gzip stream")
		}
		return zr, nil
	case Zstd:
		zr, err := zstd.NewReader(src)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open zstd stream")
		}
		return zr.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(src)), nil
	case S2:
		return io.NopCloser(s2.NewReader(src)), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", alg)
	}
}

// Decompress detects the framing of data and returns the decompressed bytes
// along with the detected algorithm.
func Decompress(data []byte) ([]byte, Algorithm, error) {
	alg := Detect(data)
	if alg == None {
		return data, None, nil
	}

	r, err := NewReader(alg, bytes.NewReader(data))
	if err != nil {
		return nil, alg, err
	}
	defer r.Close()

	var buf bytes.Buffer
	buf.Grow(len(data) * 4)
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, alg, errors.Wrap(err, errors.ErrorTypeFile, "failed to decompress input").
			WithDetail("algorithm", string(alg))
	}
	return buf.Bytes(), alg, nil
}

// NewWriter wraps dst with a compressing writer for alg at the library's
// default level. Closing the writer flushes the stream but not dst.
func NewWriter(alg Algorithm, dst io.Writer) (io.WriteCloser, error) {
	switch alg {
	case None:
		return nopWriteCloser{dst}, nil
	case Gzip:
		return gzip.NewWriter(dst), nil
	case Zstd:
		zw, err := zstd.NewWriter(dst)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create zstd writer")
		}
		return zw, nil
	case LZ4:
		return lz4.NewWriter(dst), nil
	case S2:
		return s2.NewWriter(dst), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", alg)
	}
}

// Compress compresses data with alg.
func Compress(alg Algorithm, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewWriter(alg, &buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to compress data")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to finish compressed stream")
	}
	return buf.Bytes(), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
