package compression

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/s2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// a legacy 114 header followed by repetitive payload
var sample = append([]byte{114, 0x02, 0x01, 0x00}, bytes.Repeat([]byte("stata observation "), 512)...)

func TestRoundTrip(t *testing.T) {
	for _, alg := range []Algorithm{Gzip, Zstd, LZ4, S2} {
		t.Run(string(alg), func(t *testing.T) {
			compressed, err := Compress(alg, sample)
			require.NoError(t, err)
			assert.Less(t, len(compressed), len(sample))
			assert.Equal(t, alg, Detect(compressed))

			out, got, err := Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, alg, got)
			assert.Equal(t, sample, out)
		})
	}
}

func TestSnappyFramed(t *testing.T) {
	var buf bytes.Buffer
	w := s2.NewWriter(&buf, s2.WriterSnappyCompat())
	_, err := w.Write(sample)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, S2, Detect(buf.Bytes()))
	out, _, err := Decompress(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, sample, out)
}

func TestUncompressedPassThrough(t *testing.T) {
	for _, in := range [][]byte{sample, []byte("<stata_dta><header>"), nil} {
		out, alg, err := Decompress(in)
		require.NoError(t, err)
		assert.Equal(t, None, alg)
		if len(in) > 0 {
			assert.Same(t, &in[0], &out[0], "uncompressed input must not be copied")
		}
	}
}

func TestCorruptStream(t *testing.T) {
	compressed, err := Compress(Gzip, sample)
	require.NoError(t, err)

	_, _, err = Decompress(compressed[:len(compressed)/2])
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestUnknownAlgorithm(t *testing.T) {
	_, err := NewReader("bzip2", bytes.NewReader(nil))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	_, err = NewWriter("bzip2", &bytes.Buffer{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
