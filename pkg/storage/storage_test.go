package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/dta2parquet/pkg/compression"
	"github.com/ajitpratap0/dta2parquet/pkg/config"
	"github.com/ajitpratap0/dta2parquet/pkg/errors"
	"github.com/ajitpratap0/dta2parquet/pkg/testutil"
)

type fakeRemote struct {
	objects   map[string][]byte
	uploadErr error
	closed    bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{objects: make(map[string][]byte)}
}

func (f *fakeRemote) Download(_ context.Context, bucket, key string) ([]byte, error) {
	b, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("object %s/%s not found", bucket, key)
	}
	return b, nil
}

func (f *fakeRemote) Upload(_ context.Context, bucket, key string, body io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[bucket+"/"+key] = b
	return nil
}

func (f *fakeRemote) Close() error {
	f.closed = true
	return nil
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in   string
		want Location
	}{
		{"out.parquet", Location{Scheme: SchemeFile, Path: "out.parquet"}},
		{"/data/in.dta", Location{Scheme: SchemeFile, Path: "/data/in.dta"}},
		{"file:///data/in.dta", Location{Scheme: SchemeFile, Path: "/data/in.dta"}},
		{"s3://bucket/a/b.dta", Location{Scheme: SchemeS3, Bucket: "bucket", Key: "a/b.dta"}},
		{"GS://bucket/x.parquet", Location{Scheme: SchemeGS, Bucket: "bucket", Key: "x.parquet"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocation(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "s3://bucket", "s3://bucket/", "gs:///key", "s3://b/dir/", "ftp://host/x"} {
		t.Run("reject "+bad, func(t *testing.T) {
			_, err := ParseLocation(bad)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}

	loc, err := ParseLocation("s3://bucket/a/b.dta")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/a/b.dta", loc.String())
	assert.True(t, loc.Remote())
}

type StorageSuite struct {
	testutil.FileSuite
	store  *Storage
	remote *fakeRemote
}

func (s *StorageSuite) SetupTest() {
	s.remote = newFakeRemote()
	s.store = New(config.StorageConfig{}, testutil.TestLogger(s.T()))
	s.store.remotes[SchemeS3] = s.remote
	s.store.remotes[SchemeGS] = s.remote
}

func (s *StorageSuite) TestOpenLocal() {
	content := []byte{113, 0x02, 0x01, 0x00, 1, 0}
	path := s.CreateTempFile("plain.dta", content)

	in, err := s.store.Open(s.Context(), Location{Scheme: SchemeFile, Path: path})
	s.Require().NoError(err)
	s.Equal(content, in.Bytes())
	s.Equal(compression.None, in.Compression)
	s.Equal(len(content), in.StoredSize)
	s.NoError(in.Close())
	s.NoError(in.Close())
}

func (s *StorageSuite) TestOpenCompressed() {
	content := bytes.Repeat([]byte("<stata_dta>"), 100)
	for _, alg := range []compression.Algorithm{compression.Gzip, compression.Zstd} {
		packed, err := compression.Compress(alg, content)
		s.Require().NoError(err)
		path := s.CreateTempFile("packed."+string(alg), packed)

		in, err := s.store.Open(s.Context(), Location{Scheme: SchemeFile, Path: path})
		s.Require().NoError(err)
		s.Equal(alg, in.Compression)
		s.Equal(content, in.Bytes())
		s.Equal(len(packed), in.StoredSize)
		s.NoError(in.Close())
	}
}

func (s *StorageSuite) TestOpenMissing() {
	_, err := s.store.Open(s.Context(), Location{Scheme: SchemeFile, Path: filepath.Join(s.TempDir(), "nope.dta")})
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeFile))
}

func (s *StorageSuite) TestOpenRemote() {
	s.remote.objects["bucket/in.dta"] = []byte("<stata_dta>")

	in, err := s.store.Open(s.Context(), Location{Scheme: SchemeS3, Bucket: "bucket", Key: "in.dta"})
	s.Require().NoError(err)
	s.Equal([]byte("<stata_dta>"), in.Bytes())

	_, err = s.store.Open(s.Context(), Location{Scheme: SchemeGS, Bucket: "bucket", Key: "other.dta"})
	s.True(errors.IsType(err, errors.ErrorTypeFile))
}

func (s *StorageSuite) TestLocalCommitIsAtomic() {
	dir := s.T().TempDir()
	dest := filepath.Join(dir, "out.parquet")

	out, err := s.store.Create(s.Context(), Location{Scheme: SchemeFile, Path: dest})
	s.Require().NoError(err)
	_, err = out.Write([]byte("PAR1"))
	s.Require().NoError(err)
	s.EqualValues(4, out.Written())

	_, err = os.Stat(dest)
	s.True(os.IsNotExist(err), "destination must not exist before commit")

	s.Require().NoError(out.Commit(s.Context()))
	got, err := os.ReadFile(dest)
	s.Require().NoError(err)
	s.Equal([]byte("PAR1"), got)
	s.Equal([]string{"out.parquet"}, s.ListDir(dir))

	s.NoError(out.Abort(), "abort after commit is a no-op")
	s.Error(out.Commit(s.Context()))
}

func (s *StorageSuite) TestLocalAbortLeavesNothing() {
	dir := s.T().TempDir()
	dest := filepath.Join(dir, "out.parquet")

	out, err := s.store.Create(s.Context(), Location{Scheme: SchemeFile, Path: dest})
	s.Require().NoError(err)
	_, err = out.Write([]byte("PAR1 partial"))
	s.Require().NoError(err)

	s.Require().NoError(out.Abort())
	s.Empty(s.ListDir(dir))
}

func (s *StorageSuite) TestRemoteUpload() {
	out, err := s.store.Create(s.Context(), Location{Scheme: SchemeGS, Bucket: "bucket", Key: "out.parquet"})
	s.Require().NoError(err)
	_, err = out.Write([]byte("PAR1"))
	s.Require().NoError(err)

	s.Require().NoError(out.Commit(s.Context()))
	s.Equal([]byte("PAR1"), s.remote.objects["bucket/out.parquet"])
}

func (s *StorageSuite) TestRemoteUploadFailure() {
	s.remote.uploadErr = fmt.Errorf("access denied")

	out, err := s.store.Create(s.Context(), Location{Scheme: SchemeS3, Bucket: "bucket", Key: "out.parquet"})
	s.Require().NoError(err)
	staged := out.file.Name()

	err = out.Commit(s.Context())
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeFile))
	s.NotContains(s.remote.objects, "bucket/out.parquet")

	_, statErr := os.Stat(staged)
	s.True(os.IsNotExist(statErr), "staging file must be removed")
}

func (s *StorageSuite) TestClose() {
	s.Require().NoError(s.store.Close())
	s.True(s.remote.closed)
	s.Empty(s.store.remotes)
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}
