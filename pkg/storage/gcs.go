package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/dta2parquet/pkg/config"
)

const parquetContentType = "application/vnd.apache.parquet"

// gcsRemote moves whole objects through a Cloud Storage client
type gcsRemote struct {
	client *storage.Client
}

func newGCSRemote(ctx context.Context, cfg config.StorageConfig) (*gcsRemote, error) {
	var opts []option.ClientOption
	if cfg.GCSEndpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.GCSEndpoint))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &gcsRemote{client: client}, nil
}

func (r *gcsRemote) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	reader, err := r.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", bucket, key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (r *gcsRemote) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	// Cancelling the context abandons the upload without creating the object
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := r.client.Bucket(bucket).Object(key).NewWriter(ctx)
	writer.ContentType = parquetContentType

	if _, err := io.Copy(writer, body); err != nil {
		cancel()
		_ = writer.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", bucket, key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func (r *gcsRemote) Close() error { return r.client.Close() }
