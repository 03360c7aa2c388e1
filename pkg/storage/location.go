package storage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// Scheme identifies the backend of a Location
type Scheme string

const (
	// SchemeFile is a local filesystem path
	SchemeFile Scheme = "file"
	// SchemeS3 is an Amazon S3 object
	SchemeS3 Scheme = "s3"
	// SchemeGS is a Google Cloud Storage object
	SchemeGS Scheme = "gs"
)

// Location addresses an input or output object
type Location struct {
	Scheme Scheme
	// Bucket and Key are set for object store locations
	Bucket string
	Key    string
	// Path is set for local files
	Path string
}

// ParseLocation parses "s3://bucket/key", "gs://bucket/object",
// "file:///path" or a plain filesystem path.
func ParseLocation(s string) (Location, error) {
	if s == "" {
		return Location{}, errors.New(errors.ErrorTypeConfig, "empty location")
	}

	scheme, rest, found := strings.Cut(s, "://")
	if !found {
		return Location{Scheme: SchemeFile, Path: s}, nil
	}

	switch Scheme(strings.ToLower(scheme)) {
	case SchemeFile:
		u, err := url.Parse(s)
		if err != nil || u.Path == "" {
			return Location{}, errors.Newf(errors.ErrorTypeConfig, "invalid file location %q", s)
		}
		return Location{Scheme: SchemeFile, Path: u.Path}, nil
	case SchemeS3, SchemeGS:
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
			return Location{}, errors.Newf(errors.ErrorTypeConfig, "location %q must name a bucket and an object", s)
		}
		return Location{Scheme: Scheme(strings.ToLower(scheme)), Bucket: bucket, Key: key}, nil
	default:
		return Location{}, errors.Newf(errors.ErrorTypeConfig, "unsupported location scheme %q", scheme)
	}
}

// Remote reports whether the location lives in an object store
func (l Location) Remote() bool {
	return l.Scheme == SchemeS3 || l.Scheme == SchemeGS
}

func (l Location) String() string {
	if l.Remote() {
		return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Key)
	}
	return l.Path
}
