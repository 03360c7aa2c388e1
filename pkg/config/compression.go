package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/parquet/compress"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// Compression is a parsed codec expression
type Compression struct {
	Name  string
	Codec compress.Compression
	// Level is meaningful only when Leveled is true
	Level   int
	Leveled bool
}

type levelRange struct {
	min, max, def int
}

var levelRanges = map[compress.Compression]levelRange{
	compress.Codecs.Gzip:   {0, 9, 6},
	compress.Codecs.Zstd:   {1, 22, 3},
	compress.Codecs.Brotli: {0, 11, 4},
}

// lz4 selects the raw block codec; the legacy Hadoop framing is not produced.
var codecNames = map[string]compress.Compression{
	"uncompressed": compress.Codecs.Uncompressed,
	"snappy":       compress.Codecs.Snappy,
	"lzo":          compress.Codecs.Lzo,
	"lz4":          compress.Codecs.Lz4Raw,
	"lz4_raw":      compress.Codecs.Lz4Raw,
	"gzip":         compress.Codecs.Gzip,
	"zstd":         compress.Codecs.Zstd,
	"brotli":       compress.Codecs.Brotli,
}

var codecExpr = regexp.MustCompile(`^([a-z0-9_]+)(?:\(([0-9]+)\))?$`)

// ParseCompression parses "name" or "name(level)". Names are case-insensitive.
// Only gzip, zstd and brotli accept a level.
func ParseCompression(s string) (Compression, error) {
	expr := strings.ToLower(strings.TrimSpace(s))
	m := codecExpr.FindStringSubmatch(expr)
	if m == nil {
		return Compression{}, errors.Newf(errors.ErrorTypeConfig, "invalid compression %q", s)
	}

	codec, ok := codecNames[m[1]]
	if !ok {
		return Compression{}, errors.Newf(errors.ErrorTypeConfig, "unknown compression codec %q", m[1])
	}
	if codec == compress.Codecs.Lzo {
		return Compression{}, errors.New(errors.ErrorTypeConfig, "lzo compression is not supported for writing")
	}

	rng, leveled := levelRanges[codec]
	if !leveled {
		if m[2] != "" {
			return Compression{}, errors.Newf(errors.ErrorTypeConfig, "codec %s does not take a level", m[1])
		}
		return Compression{Name: canonicalName(m[1]), Codec: codec}, nil
	}

	level := rng.def
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil || n < rng.min || n > rng.max {
			return Compression{}, errors.Newf(errors.ErrorTypeConfig,
				"%s level must be within [%d, %d], got %s", m[1], rng.min, rng.max, m[2])
		}
		level = n
	}
	return Compression{Name: m[1], Codec: codec, Level: level, Leveled: true}, nil
}

func canonicalName(name string) string {
	if name == "lz4" {
		return "lz4_raw"
	}
	return name
}

// String renders the canonical expression
func (c Compression) String() string {
	if c.Leveled {
		return fmt.Sprintf("%s(%d)", c.Name, c.Level)
	}
	return c.Name
}
