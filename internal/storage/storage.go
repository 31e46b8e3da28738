// Package storage wraps Google Cloud Storage access for statement files.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/davidrdinardo/smart-spend-map/internal/pipeline"
)

const uploadTimeout = 2 * time.Minute

// Service reads and writes statement objects in one bucket. It assumes
// Application Default Credentials are configured.
type Service struct {
	client *storage.Client
	bucket string
}

var _ pipeline.ObjectStore = (*Service)(nil)

// NewService creates a service for the bucket named by SPENDMAP_BUCKET.
func NewService(ctx context.Context) (*Service, error) {
	bucket := os.Getenv("SPENDMAP_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("NewService: SPENDMAP_BUCKET is not set")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewService: creating storage client: %w", err)
	}
	return NewServiceWithClient(client, bucket), nil
}

// NewServiceWithClient wraps an existing client for the given bucket. The
// caller keeps ownership of the client.
func NewServiceWithClient(client *storage.Client, bucket string) *Service {
	return &Service{client: client, bucket: bucket}
}

// Close releases the underlying client.
func (s *Service) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Bucket returns the bucket this service operates on.
func (s *Service) Bucket() string {
	return s.bucket
}

// Download fetches an object from the service bucket. A full gs:// URI is
// accepted too and may point at another bucket.
func (s *Service) Download(ctx context.Context, objectPath string) ([]byte, error) {
	bucket := s.bucket
	if strings.HasPrefix(objectPath, "gs://") {
		var err error
		bucket, objectPath, err = ParseURI(objectPath)
		if err != nil {
			return nil, err
		}
	}

	rc, err := s.client.Bucket(bucket).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Download: opening %s/%s: %w", bucket, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Download: reading %s/%s: %w", bucket, objectPath, err)
	}
	return data, nil
}

// Upload writes bytes to an object in the service bucket and returns the
// object's gs:// URI. The content type is derived from the object's
// extension so browsers and the console render statements sensibly.
func (s *Service) Upload(ctx context.Context, objectPath string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentTypeFor(objectPath)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Upload: writing %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Upload: finalizing %s: %w", objectPath, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, objectPath), nil
}

func contentTypeFor(objectPath string) string {
	switch strings.ToLower(filepath.Ext(objectPath)) {
	case ".pdf":
		return "application/pdf"
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
