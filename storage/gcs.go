package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsHost = "storage.googleapis.com"

// GCS stores images in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a client from a service account file, or from the ambient
// credentials when credentialsFile is empty.
func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs: bucket not configured")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Name() string { return "gcs" }

func (g *GCS) Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	name := objectName(folder, fh.Filename)
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType(fh)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload close: %w", err)
	}
	return fmt.Sprintf("https://%s/%s/%s", gcsHost, g.bucket, name), nil
}

func (g *GCS) Delete(ctx context.Context, raw string) error {
	name, err := gcsObjectName(g.bucket, raw)
	if err != nil {
		return err
	}
	if err := g.client.Bucket(g.bucket).Object(name).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

// gcsObjectName accepts both path-style and virtual-host-style public URLs.
func gcsObjectName(bucket, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	host := strings.ToLower(u.Host)
	path := strings.TrimPrefix(u.Path, "/")

	switch host {
	case gcsHost:
		prefix := bucket + "/"
		if !strings.HasPrefix(path, prefix) || len(path) == len(prefix) {
			return "", ErrForeignURL
		}
		return strings.TrimPrefix(path, prefix), nil
	case strings.ToLower(bucket) + "." + gcsHost:
		if path == "" {
			return "", ErrForeignURL
		}
		return path, nil
	}
	return "", ErrForeignURL
}
