package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	ErrTooManyFiles  = errors.New("too many files")
	ErrFileTooLarge  = errors.New("file too large")
	ErrFileExtension = errors.New("invalid file extension")
	ErrFileType      = errors.New("invalid file type")
)

// ImageValidator checks uploads by count, size, extension and sniffed
// content type.
type ImageValidator struct {
	allowedExt  map[string]bool
	allowedMime map[string]bool
	maxSize     int64
	maxFiles    int
}

func NewImageValidator(maxSizeMB, maxFiles int) *ImageValidator {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &ImageValidator{
		allowedExt: map[string]bool{
			".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
		},
		allowedMime: map[string]bool{
			"image/jpeg": true, "image/png": true, "image/webp": true, "image/gif": true,
		},
		maxSize:  int64(maxSizeMB) << 20,
		maxFiles: maxFiles,
	}
}

func (v *ImageValidator) MaxFiles() int { return v.maxFiles }

// ValidateAll validates every file and the file count.
func (v *ImageValidator) ValidateAll(files []*multipart.FileHeader) error {
	if len(files) > v.maxFiles {
		return fmt.Errorf("%w: at most %d images", ErrTooManyFiles, v.maxFiles)
	}
	for _, fh := range files {
		if _, err := v.Validate(fh); err != nil {
			return fmt.Errorf("%s: %w", fh.Filename, err)
		}
	}
	return nil
}

// Validate returns the sniffed content type of an acceptable image.
func (v *ImageValidator) Validate(fh *multipart.FileHeader) (string, error) {
	if fh.Size > v.maxSize {
		return "", fmt.Errorf("%w (max %d MB)", ErrFileTooLarge, v.maxSize>>20)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !v.allowedExt[ext] {
		return "", ErrFileExtension
	}

	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("read file header: %w", err)
	}

	detected := strings.ToLower(http.DetectContentType(buf[:n]))
	if !v.allowedMime[detected] {
		return "", ErrFileType
	}
	return detected, nil
}
