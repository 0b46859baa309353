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

// ErrNotFound is returned by Open when no object exists at the given path.
var ErrNotFound = errors.New("storage: object not found")

// Store is an opaque blob store. Upload returns the path the object can later
// be retrieved from; Open streams it back.
type Store interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// DiskStore keeps objects under a root directory on the local filesystem.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	clean, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}
	if err := os.WriteFile(clean, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return key, nil
}

func (s *DiskStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	clean, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(clean)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

// resolve maps a storage key to an absolute path and refuses keys that would
// escape the root.
func (s *DiskStore) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}
