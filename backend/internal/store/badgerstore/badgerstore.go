// Package badgerstore keeps graph documents in an embedded BadgerDB.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"kaybee/backend/internal/store"
	kberrors "kaybee/backend/pkg/errors"
)

const prefixGraph byte = 0x01

// Options configures the database
type Options struct {
	Dir        string
	InMemory   bool
	SyncWrites bool
}

// Store is a store.Store backed by BadgerDB. The version check and the write share one
// transaction, so compare-and-set holds across goroutines.
type Store struct {
	db *badger.DB
}

// Open opens or creates the database
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" && !opts.InMemory {
		return nil, kberrors.NewConfigMissingRequired("KNOWLEDGE_GRAPH_DIR")
	}
	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	// Graph documents are small; keep the footprint down
	badgerOpts = badgerOpts.
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithBlockCacheSize(16 << 20).
		WithIndexCacheSize(8 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, kberrors.NewStoreOperationFailed("open", opts.Dir, fmt.Errorf("failed to open BadgerDB: %w", err))
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a throwaway database for tests
func OpenInMemory() (*Store, error) {
	return Open(Options{InMemory: true})
}

func graphKey(key string) []byte {
	return append([]byte{prefixGraph}, []byte(key)...)
}

// Get reads the document stored under key
func (s *Store) Get(ctx context.Context, key string) (store.Object, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.Object{}, false, kberrors.NewContextCancelled("store get", err)
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(graphKey(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.Object{}, false, nil
	}
	if err != nil {
		return store.Object{}, false, kberrors.NewStoreOperationFailed("get", key, err)
	}
	return store.Object{Data: data, Version: store.Version(data)}, true, nil
}

// Put replaces the document stored under key if expectedVersion is current
func (s *Store) Put(ctx context.Context, key string, data []byte, expectedVersion string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", kberrors.NewContextCancelled("store put", err)
	}

	errStale := errors.New("stale version")
	err := s.db.Update(func(txn *badger.Txn) error {
		exists := true
		current := ""
		item, err := txn.Get(graphKey(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			exists = false
		case err != nil:
			return err
		default:
			stored, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			current = store.Version(stored)
		}
		if !store.Matches(expectedVersion, current, exists) {
			return errStale
		}
		return txn.Set(graphKey(key), data)
	})
	switch {
	case errors.Is(err, errStale), errors.Is(err, badger.ErrConflict):
		return "", kberrors.NewConflict(key, expectedVersion)
	case err != nil:
		return "", kberrors.NewStoreOperationFailed("put", key, err)
	}
	return store.Version(data), nil
}

// Close closes the database
func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}
