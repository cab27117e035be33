// Package storetest checks a store.Store implementation against the compare-and-set contract.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaybee/backend/internal/store"
	kberrors "kaybee/backend/pkg/errors"
)

// Run exercises s. newKey must return a key unused in s on every call.
func Run(t *testing.T, s store.Store, newKey func() string) {
	t.Helper()
	ctx := context.Background()

	t.Run("absent key is not an error", func(t *testing.T) {
		obj, found, err := s.Get(ctx, newKey())
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, obj.Data)
	})

	t.Run("create then read back", func(t *testing.T) {
		key := newKey()
		version, err := s.Put(ctx, key, []byte(`{"a":1}`), "")
		require.NoError(t, err)
		assert.NotEmpty(t, version)

		obj, found, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, `{"a":1}`, string(obj.Data))
		assert.Equal(t, version, obj.Version)
	})

	t.Run("create fails when the key exists", func(t *testing.T) {
		key := newKey()
		_, err := s.Put(ctx, key, []byte(`one`), "")
		require.NoError(t, err)

		_, err = s.Put(ctx, key, []byte(`two`), "")
		require.Error(t, err)
		assert.True(t, kberrors.IsConflict(err))
		assertData(t, s, key, "one")
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		key := newKey()
		v1, err := s.Put(ctx, key, []byte(`one`), "")
		require.NoError(t, err)
		v2, err := s.Put(ctx, key, []byte(`two`), v1)
		require.NoError(t, err)
		assert.NotEqual(t, v1, v2)

		_, err = s.Put(ctx, key, []byte(`lost update`), v1)
		require.Error(t, err)
		assert.True(t, kberrors.IsConflict(err))
		assertData(t, s, key, "two")
	})

	t.Run("update of an absent key with a version is rejected", func(t *testing.T) {
		_, err := s.Put(ctx, newKey(), []byte(`x`), "deadbeef")
		require.Error(t, err)
		assert.True(t, kberrors.IsConflict(err))
	})

	t.Run("any version overwrites", func(t *testing.T) {
		key := newKey()
		_, err := s.Put(ctx, key, []byte(`one`), store.AnyVersion)
		require.NoError(t, err)
		_, err = s.Put(ctx, key, []byte(`two`), store.AnyVersion)
		require.NoError(t, err)
		assertData(t, s, key, "two")
	})

	t.Run("concurrent writers from one version", func(t *testing.T) {
		key := newKey()
		base, err := s.Put(ctx, key, []byte(`base`), "")
		require.NoError(t, err)

		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Put(ctx, key, []byte(fmt.Sprintf("writer-%d", i)), base)
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)

		wins := 0
		for err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.True(t, kberrors.IsConflict(err), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, wins, "exactly one writer may win")
	})
}

func assertData(t *testing.T, s store.Store, key, want string) {
	t.Helper()
	obj, found, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, string(obj.Data))
}
