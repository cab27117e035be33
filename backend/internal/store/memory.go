package store

import (
	"context"
	"sync"

	kberrors "kaybee/backend/pkg/errors"
)

// Memory keeps documents in process memory. Used in tests and for throwaway servers.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Object
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Object)}
}

// Get returns a copy of the stored document
func (m *Memory) Get(ctx context.Context, key string) (Object, bool, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, false, kberrors.NewContextCancelled("store get", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.docs[key]
	if !ok {
		return Object{}, false, nil
	}
	return Object{Data: append([]byte(nil), obj.Data...), Version: obj.Version}, true, nil
}

// Put stores a copy of data if expectedVersion is current
func (m *Memory) Put(ctx context.Context, key string, data []byte, expectedVersion string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", kberrors.NewContextCancelled("store put", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.docs[key]
	if !Matches(expectedVersion, current.Version, exists) {
		return "", kberrors.NewConflict(key, expectedVersion)
	}
	version := Version(data)
	m.docs[key] = Object{Data: append([]byte(nil), data...), Version: version}
	return version, nil
}

// Len returns the number of stored documents
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
