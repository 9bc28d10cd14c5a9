package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrRemoteNotConfigured is returned when S3 operations are attempted
	// without proper configuration.
	ErrRemoteNotConfigured = errors.New("S3 storage is not configured")
	// ErrInvalidName is returned for artifact names that would escape the
	// data directory.
	ErrInvalidName = errors.New("invalid artifact name")
)

// LocalStorage implements the Storage interface using local disk.
// It keeps artifacts in a configurable directory and does not support
// S3 operations unless wrapped with S3Storage.
type LocalStorage struct {
	dataDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// If dataDir is empty, a directory below os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(dataDir string) (*LocalStorage, error) {
	if dataDir == "" {
		dataDir = filepath.Join(os.TempDir(), "tts-arranger")
	}

	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	return &LocalStorage{dataDir: dataDir}, nil
}

// DataDir returns the artifact directory path.
func (s *LocalStorage) DataDir() string {
	return s.dataDir
}

// Open opens a local file. s3:// locations fail with ErrRemoteNotConfigured.
func (s *LocalStorage) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if _, _, ok := ParseS3URI(location); ok {
		return nil, ErrRemoteNotConfigured
	}

	f, err := os.Open(strings.TrimPrefix(location, "file://")) // #nosec G304 - locations come from trusted configuration
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}

	return f, nil
}

// Save writes data to a temporary file in the data directory and renames it
// to name, so readers never observe a partial artifact.
func (s *LocalStorage) Save(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	f, err := os.CreateTemp(s.dataDir, name+"_*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	tmpName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write artifact: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close artifact: %w", err)
	}

	target := filepath.Join(s.dataDir, name)
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("rename artifact: %w", err)
	}

	return target, nil
}

// Remove deletes the specified files, returning the first error
// encountered. Missing files are not an error.
func (s *LocalStorage) Remove(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove artifact %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// Publish is not supported by LocalStorage and returns ErrRemoteNotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrRemoteNotConfigured
}

// ParseS3URI splits an s3://bucket/key URI. ok is false for anything else.
func ParseS3URI(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
