package store

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	kberrors "kaybee/backend/pkg/errors"
	"kaybee/backend/pkg/logger"
)

// BreakerConfig holds circuit breaker settings for a store
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the settings used by the server
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

type breakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker stops calling next after repeated backend failures and fails fast until the
// backend recovers. Conflicts, bad input and cancellations do not count as failures.
func WithBreaker(next Store, cfg BreakerConfig) Store {
	log := logger.Named("store")
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Store circuit breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !kberrors.IsRetryable(err)
		},
	})
	return &breakerStore{next: next, cb: cb}
}

func (b *breakerStore) Get(ctx context.Context, key string) (Object, bool, error) {
	type got struct {
		obj   Object
		found bool
	}
	res, err := b.cb.Execute(func() (interface{}, error) {
		obj, found, err := b.next.Get(ctx, key)
		return got{obj, found}, err
	})
	if err != nil {
		return Object{}, false, b.wrap("get", key, err)
	}
	g := res.(got)
	return g.obj, g.found, nil
}

func (b *breakerStore) Put(ctx context.Context, key string, data []byte, expectedVersion string) (string, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Put(ctx, key, data, expectedVersion)
	})
	if err != nil {
		return "", b.wrap("put", key, err)
	}
	return res.(string), nil
}

func (b *breakerStore) Close(ctx context.Context) error {
	if c, ok := b.next.(Closer); ok {
		return c.Close(ctx)
	}
	return nil
}

func (b *breakerStore) wrap(op, key string, err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return kberrors.NewStoreOperationFailed(op, key, err)
	}
	return err
}
