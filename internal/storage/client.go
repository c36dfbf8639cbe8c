package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey is returned for keys that are empty, absolute or escape the store.
var ErrInvalidKey = errors.New("invalid storage key")

// FileInfo contains metadata about a stored object
type FileInfo struct {
	Key         string
	Size        int64
	ContentType string
	ModifiedAt  time.Time
}

// Client defines the interface for file storage operations
type Client interface {
	// Upload writes content under key, replacing any existing object
	Upload(ctx context.Context, key string, content io.Reader, contentType string) error

	// Download retrieves the contents of an object
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)

	// GetMetadata retrieves object info without downloading content
	GetMetadata(ctx context.Context, key string) (*FileInfo, error)
}

// CleanKey normalises a slash-separated key and rejects anything that could
// address a location outside the store.
func CleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, `\`) || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// DeleteAll removes every non-empty key, returning the first error after trying all of them.
func DeleteAll(ctx context.Context, client Client, keys ...string) error {
	var firstErr error
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := client.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return firstErr
}
