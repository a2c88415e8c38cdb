package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nirmalhandloom/storebackend/config"
)

// ErrForeignURL is returned by Delete for URLs the backend did not issue.
var ErrForeignURL = errors.New("url does not belong to this storage backend")

// Store keeps uploaded images and serves them by public URL.
type Store interface {
	Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, url string) error
	Name() string
}

// New picks the backend named by cfg.Backend. "auto" prefers GCS, then R2,
// then the local disk, based on which settings are present.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" || backend == "auto" {
		switch {
		case cfg.GCSBucket != "":
			backend = "gcs"
		case cfg.R2Bucket != "" && cfg.R2Endpoint != "":
			backend = "r2"
		default:
			backend = "local"
		}
	}

	var (
		s   Store
		err error
	)
	switch backend {
	case "gcs":
		s, err = NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
	case "r2", "s3":
		s, err = NewR2(ctx, R2Options{
			Bucket:          cfg.R2Bucket,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Endpoint:        cfg.R2Endpoint,
			PublicDomain:    cfg.R2PublicDomain,
		})
	case "local":
		s, err = NewLocal(cfg.LocalDir, cfg.LocalURLPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("image storage ready", slog.String("backend", s.Name()))
	return s, nil
}

// UploadAll stores every file under folder. On failure the files already
// stored are removed again.
func UploadAll(ctx context.Context, s Store, folder string, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		u, err := s.Upload(ctx, folder, fh)
		if err != nil {
			for _, done := range urls {
				_ = s.Delete(ctx, done)
			}
			return nil, fmt.Errorf("upload %s: %w", fh.Filename, err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// objectName builds "<folder>/<unix-nanos>-<uuid><ext>".
func objectName(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	folder = strings.Trim(folder, "/")
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.New().String(), ext)
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
