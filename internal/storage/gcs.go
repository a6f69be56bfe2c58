package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSProvider stores blobs in a Google Cloud Storage bucket. Credentials come
// from ADC, or from GCS_CREDENTIALS_JSON when running outside the cloud.
type GCSProvider struct {
	client *storage.Client
	bucket string
}

func NewGCSProvider(ctx context.Context, bucket string) (*GCSProvider, error) {
	var opts []option.ClientOption
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCS client: %w", err)
	}

	return &GCSProvider{client: client, bucket: bucket}, nil
}

func (p *GCSProvider) Save(ctx context.Context, objectName string, r io.Reader) (string, error) {
	w := p.client.Bucket(p.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("storage: failed to write object %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: failed to finalize object %s: %w", objectName, err)
	}

	return fmt.Sprintf("gs://%s/%s", p.bucket, objectName), nil
}
