package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	kberrors "kaybee/backend/pkg/errors"
)

// File stores each document as a file in one directory. Writes go to a temporary file that
// is renamed over the target, so readers never see a half-written graph.
// Compare-and-set is enforced within this process only.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates the directory if needed
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, kberrors.NewConfigMissingRequired("KNOWLEDGE_GRAPH_DIR")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, kberrors.NewStoreOperationFailed("open", dir, err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, filepath.Base(key))
}

// Get reads the document stored under key
func (f *File) Get(ctx context.Context, key string) (Object, bool, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, false, kberrors.NewContextCancelled("store get", err)
	}
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return Object{}, false, nil
	}
	if err != nil {
		return Object{}, false, kberrors.NewStoreOperationFailed("get", key, err)
	}
	return Object{Data: data, Version: Version(data)}, true, nil
}

// Put replaces the document stored under key if expectedVersion is current
func (f *File) Put(ctx context.Context, key string, data []byte, expectedVersion string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", kberrors.NewContextCancelled("store put", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.path(key)
	current, err := os.ReadFile(target)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", kberrors.NewStoreOperationFailed("put", key, err)
	}
	currentVersion := ""
	if exists {
		currentVersion = Version(current)
	}
	if !Matches(expectedVersion, currentVersion, exists) {
		return "", kberrors.NewConflict(key, expectedVersion)
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-"+filepath.Base(key)+"-*")
	if err != nil {
		return "", kberrors.NewStoreOperationFailed("put", key, err)
	}
	tmpName := tmp.Name()
	cleanup := func(cause error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", kberrors.NewStoreOperationFailed("put", key, cause)
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", kberrors.NewStoreOperationFailed("put", key, fmt.Errorf("rename: %w", err))
	}
	return Version(data), nil
}

// Dir returns the directory documents are stored in
func (f *File) Dir() string {
	return f.dir
}
