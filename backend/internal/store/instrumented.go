package store

import (
	"context"
	"time"

	kberrors "kaybee/backend/pkg/errors"
)

// Operation outcomes reported to an Observer
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusConflict = "conflict"
	StatusError    = "error"
)

// Observer receives the outcome and duration of every store call
type Observer interface {
	ObserveStoreOperation(op, status string, elapsed time.Duration)
}

type instrumentedStore struct {
	next Store
	obs  Observer
}

// WithMetrics reports every call on next to obs
func WithMetrics(next Store, obs Observer) Store {
	return &instrumentedStore{next: next, obs: obs}
}

func (s *instrumentedStore) Get(ctx context.Context, key string) (Object, bool, error) {
	start := time.Now()
	obj, found, err := s.next.Get(ctx, key)
	status := StatusOK
	switch {
	case err != nil:
		status = statusOf(err)
	case !found:
		status = StatusNotFound
	}
	s.obs.ObserveStoreOperation("get", status, time.Since(start))
	return obj, found, err
}

func (s *instrumentedStore) Put(ctx context.Context, key string, data []byte, expectedVersion string) (string, error) {
	start := time.Now()
	version, err := s.next.Put(ctx, key, data, expectedVersion)
	status := StatusOK
	if err != nil {
		status = statusOf(err)
	}
	s.obs.ObserveStoreOperation("put", status, time.Since(start))
	return version, err
}

func (s *instrumentedStore) Close(ctx context.Context) error {
	if c, ok := s.next.(Closer); ok {
		return c.Close(ctx)
	}
	return nil
}

func statusOf(err error) string {
	if kberrors.IsConflict(err) {
		return StatusConflict
	}
	return StatusError
}
