// Package storage provides access to captured binary payloads.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore retrieves binary payloads referenced by ingest items.
type BlobStore interface {
	// Download fetches the payload stored under bucket/path.
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	// Upload stores a payload under bucket/path, creating the bucket if needed.
	Upload(ctx context.Context, bucket, path string, data []byte) error
}

// FSStore is a filesystem-backed blob store. Each bucket is a directory
// under the configured root.
type FSStore struct {
	root string
}

var _ BlobStore = (*FSStore)(nil)

// NewFSStore creates a filesystem blob store rooted at root.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob root directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Download reads the payload at bucket/path.
func (s *FSStore) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	full, err := s.resolve(bucket, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read blob %s/%s: %w", bucket, path, err)
	}
	return data, nil
}

// Upload writes the payload to bucket/path.
func (s *FSStore) Upload(ctx context.Context, bucket, path string, data []byte) error {
	full, err := s.resolve(bucket, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write blob %s/%s: %w", bucket, path, err)
	}
	return nil
}

// resolve joins bucket and path under the root, rejecting traversal
// outside the root.
func (s *FSStore) resolve(bucket, path string) (string, error) {
	if bucket == "" || path == "" {
		return "", fmt.Errorf("bucket and path required")
	}
	full := filepath.Join(s.root, bucket, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	return full, nil
}
