package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/dta2parquet/pkg/compression"
	parquetfmt "github.com/ajitpratap0/dta2parquet/pkg/formats/columnar"
	"github.com/ajitpratap0/dta2parquet/pkg/stata"
	"github.com/ajitpratap0/dta2parquet/pkg/stata/statatest"
	"github.com/ajitpratap0/dta2parquet/pkg/testutil"
)

func sampleFile() *statatest.File {
	return &statatest.File{
		Release: 117,
		Label:   "survey",
		Vars: []statatest.Variable{
			{Name: "region", Code: statatest.TaggedByte, Format: "%8.0g", ValueLabelName: "regionlbl"},
			{Name: "income", Code: statatest.TaggedDouble, Format: "%10.0g", Label: "Household income"},
			{Name: "city", Code: 8, Format: "%8s"},
		},
		Rows: [][]byte{
			statatest.Row(statatest.Int8(1), statatest.Float64(52000), statatest.Str("Oslo", 8)),
			statatest.Row(statatest.Int8(2), statatest.Float64Bits(0x7fe0000000000000), statatest.Str("Bergen", 8)),
		},
		ValueLabels: []statatest.LabelSet{{Name: "regionlbl", Values: []int32{1, 2}, Labels: []string{"north", "south"}}},
	}
}

// execute runs the command line quietly and returns the exit code and stdout
func execute(ctx context.Context, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(ctx, append(args, "--log-level", "error"), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

type CLISuite struct {
	testutil.FileSuite
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) outputDir() string {
	dir, err := os.MkdirTemp(s.TempDir(), "out-*")
	s.Require().NoError(err)
	return dir
}

func (s *CLISuite) TestConvert() {
	in := s.CreateTempFile("survey.dta", sampleFile().Bytes())
	dir := s.outputDir()
	out := filepath.Join(dir, "survey.parquet")

	code, stdout, stderr := execute(s.Context(), in, out, "zstd(5)", "--workers", "2", "--chunk-rows", "1")
	s.Require().Equal(exitOK, code, stderr)
	s.Empty(stdout)
	s.Equal([]string{"survey.parquet"}, s.ListDir(dir))

	data, err := os.ReadFile(out)
	s.Require().NoError(err)
	tbl, kv, err := parquetfmt.ReadTable(s.Context(), bytes.NewReader(data), nil)
	s.Require().NoError(err)
	defer tbl.Release()

	s.EqualValues(2, tbl.NumRows())
	s.EqualValues(3, tbl.NumCols())
	s.Equal(1, tbl.Column(1).NullN())
	s.Equal(version, kv[VersionMetadataKey])

	var dict stata.Dictionary
	s.Require().NoError(json.Unmarshal([]byte(kv[parquetfmt.DictionaryMetadataKey]), &dict))
	s.Equal("survey", dict.Label)
	s.Equal("Household income", dict.Variables[1].Label)
	s.Len(dict.Variables[0].ValueLabels, 2)
}

func (s *CLISuite) TestConvertCompressedInput() {
	packed, err := compression.Compress(compression.Gzip, sampleFile().Bytes())
	s.Require().NoError(err)
	in := s.CreateTempFile("survey.dta.gz", packed)
	out := filepath.Join(s.outputDir(), "survey.parquet")

	code, _, stderr := execute(s.Context(), in, out, "--no-dictionary")
	s.Require().Equal(exitOK, code, stderr)

	f, err := os.Open(out)
	s.Require().NoError(err)
	defer f.Close()
	kv, rows, err := parquetfmt.ReadMetadata(f)
	s.Require().NoError(err)
	s.EqualValues(2, rows)
	s.NotContains(kv, parquetfmt.DictionaryMetadataKey)
}

func (s *CLISuite) TestConvertCorruptInput() {
	data := sampleFile().Bytes()
	in := s.CreateTempFile("truncated.dta", data[:len(data)-40])
	dir := s.outputDir()

	code, _, stderr := execute(s.Context(), in, filepath.Join(dir, "out.parquet"))
	s.Equal(exitInputError, code)
	s.Contains(stderr, "dta2parquet:")
	s.Empty(s.ListDir(dir), "no output or staging file is left behind")
}

func (s *CLISuite) TestConvertMissingInput() {
	dir := s.outputDir()
	code, _, stderr := execute(s.Context(), filepath.Join(dir, "absent.dta"), filepath.Join(dir, "out.parquet"))
	s.Equal(exitFailure, code)
	s.Contains(stderr, "failed to open input")
	s.Empty(s.ListDir(dir))
}

func (s *CLISuite) TestConvertBadCompression() {
	in := s.CreateTempFile("bad-codec.dta", sampleFile().Bytes())
	dir := s.outputDir()

	for _, codec := range []string{"gzip(12)", "lzo", "snappy(1)"} {
		code, _, stderr := execute(s.Context(), in, filepath.Join(dir, "out.parquet"), codec)
		s.Equal(exitFailure, code, codec)
		s.Contains(stderr, "config:", codec)
	}
	s.Empty(s.ListDir(dir))
}

func (s *CLISuite) TestConvertWritesMetrics() {
	in := s.CreateTempFile("metrics.dta", sampleFile().Bytes())
	dir := s.outputDir()
	metricsFile := filepath.Join(s.TempDir(), "run.prom")

	code, _, stderr := execute(s.Context(), in, filepath.Join(dir, "out.parquet"), "--metrics-file", metricsFile)
	s.Require().Equal(exitOK, code, stderr)

	text, err := os.ReadFile(metricsFile)
	s.Require().NoError(err)
	s.Contains(string(text), "dta2parquet_rows_decoded_total")
	s.Contains(string(text), "dta2parquet_stage_duration_seconds")
}

func (s *CLISuite) TestConvertWritesProfiles() {
	in := s.CreateTempFile("profiled.dta", sampleFile().Bytes())
	profiles := filepath.Join(s.TempDir(), "profiles")

	code, _, stderr := execute(s.Context(), in, filepath.Join(s.outputDir(), "out.parquet"),
		"--profile", "cpu,memory", "--profile-dir", profiles)
	s.Require().Equal(exitOK, code, stderr)
	s.Len(s.ListDir(profiles), 2)
}

func (s *CLISuite) TestInspect() {
	in := s.CreateTempFile("inspect.dta", sampleFile().Bytes())

	code, stdout, stderr := execute(s.Context(), "inspect", in)
	s.Require().Equal(exitOK, code, stderr)

	var dict stata.Dictionary
	s.Require().NoError(json.Unmarshal([]byte(stdout), &dict))
	s.Equal(117, dict.Release)
	s.Equal(2, dict.NObs)
	s.Require().Len(dict.Variables, 3)
	s.Equal("city", dict.Variables[2].Name)
	s.Equal([]stata.ValueLabel{{Value: 1, Label: "north"}, {Value: 2, Label: "south"}}, dict.Variables[0].ValueLabels)

	// The footer of a converted file carries the same dictionary
	out := filepath.Join(s.outputDir(), "inspect.parquet")
	code, _, stderr = execute(s.Context(), in, out)
	s.Require().Equal(exitOK, code, stderr)

	code, stdout, stderr = execute(s.Context(), "inspect", out)
	s.Require().Equal(exitOK, code, stderr)
	var fromFooter stata.Dictionary
	s.Require().NoError(json.Unmarshal([]byte(stdout), &fromFooter))
	s.Equal(dict, fromFooter)
}

func TestVersionCommand(t *testing.T) {
	code, stdout, _ := execute(context.Background(), "version")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "dta2parquet v"+version)
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("DTA2PARQUET_OUTPUT_COMPRESSION", "brotli(9)")

	code, stdout, stderr := execute(context.Background(), "config")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "compression: brotli(9)")
	assert.Contains(t, stdout, "level: error")
}

func TestUsageErrors(t *testing.T) {
	code, _, stderr := execute(context.Background(), "only-one-arg")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "accepts between 2 and 3 arg(s)")

	code, _, _ = execute(context.Background(), "in.dta", "out.parquet", "--workers", "0")
	assert.Equal(t, exitFailure, code)
}
