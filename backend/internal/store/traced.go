package store

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	kberrors "kaybee/backend/pkg/errors"
)

// Span names
const (
	SpanGet = "kaybee.store.get"
	SpanPut = "kaybee.store.put"
)

type tracedStore struct {
	next    Store
	tracer  trace.Tracer
	backend string
}

// WithTracing records a span around every store call. A nil tracer uses the global provider.
func WithTracing(next Store, backend string, tracer trace.Tracer) Store {
	if tracer == nil {
		tracer = otel.Tracer("kaybee/store")
	}
	return &tracedStore{next: next, tracer: tracer, backend: backend}
}

func (t *tracedStore) Get(ctx context.Context, key string) (Object, bool, error) {
	ctx, span := t.tracer.Start(ctx, SpanGet, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("kaybee.store.backend", t.backend),
		attribute.String("kaybee.store.key", key),
	)

	obj, found, err := t.next.Get(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return obj, found, err
	}
	span.SetAttributes(
		attribute.Bool("kaybee.store.found", found),
		attribute.Int("kaybee.store.bytes", len(obj.Data)),
	)
	span.SetStatus(codes.Ok, "")
	return obj, found, nil
}

func (t *tracedStore) Put(ctx context.Context, key string, data []byte, expectedVersion string) (string, error) {
	ctx, span := t.tracer.Start(ctx, SpanPut, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("kaybee.store.backend", t.backend),
		attribute.String("kaybee.store.key", key),
		attribute.Int("kaybee.store.bytes", len(data)),
		attribute.Bool("kaybee.store.conditional", expectedVersion != AnyVersion),
	)

	version, err := t.next.Put(ctx, key, data, expectedVersion)
	if err != nil {
		span.SetAttributes(attribute.Bool("kaybee.store.conflict", kberrors.IsConflict(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetStatus(codes.Ok, "")
	return version, nil
}

func (t *tracedStore) Close(ctx context.Context) error {
	if c, ok := t.next.(Closer); ok {
		return c.Close(ctx)
	}
	return nil
}
