// Package storage provides access to rule sources and compiled artifacts.
// It defines the Storage interface (port) and implementations for local disk
// and S3.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for reading sources and persisting
// compiled projects.
type Storage interface {
	// Open returns the content at location: a local path, a file:// URL or,
	// when S3 is configured, an s3://bucket/key URI.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, location string) (io.ReadCloser, error)

	// Save writes data to the artifact named name under the data directory
	// and returns its path. An existing artifact is replaced.
	Save(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Remove deletes the specified artifacts.
	// It continues even if some files fail to delete.
	Remove(ctx context.Context, paths []string) error

	// Publish uploads data under key and returns its URL.
	// Returns ErrRemoteNotConfigured if S3 is not configured.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}
