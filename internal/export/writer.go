// Package export writes reconciliation report snapshots to storage.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Writer stores an object and returns the URI it was written to.
type Writer interface {
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// GCSWriter writes objects to a Google Cloud Storage bucket.
type GCSWriter struct {
	client *storage.Client
	bucket string
}

// NewGCSWriter creates a storage client for bucket. Without credentialsFile
// Application Default Credentials are used.
func NewGCSWriter(ctx context.Context, bucket, credentialsFile string) (*GCSWriter, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSWriter{client: client, bucket: bucket}, nil
}

// Write uploads data as a JSON object.
func (g *GCSWriter) Write(ctx context.Context, name string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy report to GCS writer: %w", err)
	}

	// Close finalizes the upload
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return "gs://" + g.bucket + "/" + name, nil
}

// Close releases the storage client.
func (g *GCSWriter) Close() error {
	return g.client.Close()
}

// FileWriter writes objects under a local directory.
type FileWriter struct {
	Dir string
}

// Write creates the object's parent directories and writes data.
func (f FileWriter) Write(ctx context.Context, name string, data []byte) (string, error) {
	path := filepath.Join(f.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %q: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write file %q: %w", path, err)
	}
	return "file://" + path, nil
}

// ParseGSURI splits gs://bucket/path into bucket and object path.
func ParseGSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}

	return parts[0], parts[1], nil
}
