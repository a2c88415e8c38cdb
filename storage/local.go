package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// Local writes images below a directory that the HTTP server exposes under
// urlPrefix.
type Local struct {
	dir       string
	urlPrefix string
}

func NewLocal(dir, urlPrefix string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("local storage: directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

func (l *Local) Name() string { return "local" }

// Dir is the directory served under URLPrefix.
func (l *Local) Dir() string { return l.dir }

func (l *Local) URLPrefix() string { return l.urlPrefix }

func (l *Local) Upload(_ context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer src.Close()

	name := objectName(folder, fh.Filename)
	dst := filepath.Join(l.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return l.urlPrefix + "/" + name, nil
}

func (l *Local) Delete(_ context.Context, raw string) error {
	prefix := l.urlPrefix + "/"
	if !strings.HasPrefix(raw, prefix) {
		return ErrForeignURL
	}
	rel := filepath.FromSlash(strings.TrimPrefix(raw, prefix))
	if rel == "" || !filepath.IsLocal(rel) {
		return ErrForeignURL
	}
	if err := os.Remove(filepath.Join(l.dir, rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	return nil
}
