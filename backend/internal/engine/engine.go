// Package engine is the entry point for callers: it finds relevant neighborhoods in a stored
// graph and merges edited neighborhoods back.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"kaybee/backend/internal/graph"
	"kaybee/backend/internal/idalloc"
	"kaybee/backend/internal/merge"
	"kaybee/backend/internal/neighborhood"
	"kaybee/backend/internal/render"
	"kaybee/backend/internal/resolver"
	"kaybee/backend/internal/store"
	kberrors "kaybee/backend/pkg/errors"
	"kaybee/backend/pkg/logger"
)

// Outcome labels reported to an Observer
const (
	StatusFound    = "found"
	StatusEmpty    = "empty"
	StatusOK       = "ok"
	StatusInvalid  = "invalid"
	StatusConflict = "conflict"
	StatusError    = "error"
)

// Observer receives the outcome of engine operations
type Observer interface {
	ObserveNeighborhood(status string, entities int)
	ObserveMerge(status string, allocated int)
}

type nopObserver struct{}

func (nopObserver) ObserveNeighborhood(string, int) {}
func (nopObserver) ObserveMerge(string, int)        {}

// Engine reads and patches the knowledge graphs kept in a store.
// It is safe for concurrent use; concurrent merges on one graph are serialized by the
// store's version check, and the loser gets a conflict error.
type Engine struct {
	store     store.Store
	resolver  *resolver.Resolver
	threshold float64
	hops      int
	maxHops   int
	ids       idalloc.Options
	observer  Observer
	logger    *zap.Logger

	loads singleflight.Group

	randMu sync.Mutex
	rand   *rand.Rand
}

// Option configures an Engine
type Option func(*Engine)

// WithResolver sets the name matcher
func WithResolver(r *resolver.Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithThreshold sets the score a name must exceed to match (0-100)
func WithThreshold(threshold float64) Option {
	return func(e *Engine) { e.threshold = threshold }
}

// WithHops sets the neighborhood radius
func WithHops(hops int) Option {
	return func(e *Engine) { e.hops = hops }
}

// WithMaxHops sets the largest radius a caller may ask for
func WithMaxHops(hops int) Option {
	return func(e *Engine) { e.maxHops = hops }
}

// WithIDOptions sets the shape of allocated entity ids
func WithIDOptions(opts idalloc.Options) Option {
	return func(e *Engine) { e.ids = opts }
}

// WithObserver reports outcomes, typically to metrics
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithRandSeed makes RandomEntity deterministic
func WithRandSeed(seed int64) Option {
	return func(e *Engine) { e.rand = rand.New(rand.NewSource(seed)) }
}

// New creates an engine on top of s
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		resolver:  resolver.Default(),
		threshold: resolver.DefaultThreshold,
		hops:      neighborhood.DefaultHops,
		maxHops:   neighborhood.MaxHops,
		ids:       idalloc.DefaultOptions(),
		observer:  nopObserver{},
		logger:    logger.Named("engine"),
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxHops < 1 || e.maxHops > neighborhood.MaxHops {
		e.maxHops = neighborhood.MaxHops
	}
	return e
}

// Hops returns the configured neighborhood radius
func (e *Engine) Hops() int {
	return e.hops
}

// MaxHops returns the largest radius a caller may ask for
func (e *Engine) MaxHops() int {
	return e.maxHops
}

func (e *Engine) checkHops(hops int) error {
	if hops > e.maxHops {
		return kberrors.NewInvalidInput("hops", fmt.Sprintf("must be at most %d", e.maxHops))
	}
	return nil
}

// snapshot is a decoded graph and the version it was read at
type snapshot struct {
	graph   *graph.Graph
	version string
	exists  bool
}

// read fetches and decodes a graph. An absent document is an empty graph.
func (e *Engine) read(ctx context.Context, graphID string) (*snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, kberrors.NewContextCancelled("load graph", err)
	}
	key := store.Key(graphID)
	obj, found, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return &snapshot{graph: graph.New()}, nil
	}
	g, err := graph.Decode(obj.Data)
	if err != nil {
		return nil, kberrors.NewStoreOperationFailed("decode", key, err)
	}
	return &snapshot{graph: g, version: obj.Version, exists: true}, nil
}

// load is read with concurrent loads of the same graph collapsed into one store call.
// The shared call outlives any single caller; each caller still returns on its own ctx.
// The returned graph is shared and must not be modified.
func (e *Engine) load(ctx context.Context, graphID string) (*snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, kberrors.NewContextCancelled("load graph", err)
	}
	shared := context.WithoutCancel(ctx)
	ch := e.loads.DoChan(graphID, func() (interface{}, error) {
		return e.read(shared, graphID)
	})
	select {
	case <-ctx.Done():
		return nil, kberrors.NewContextCancelled("load graph", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot), nil
	}
}

// FindRelevantNeighborhood resolves names against the graph and returns the neighborhood of
// every matching entity. No match yields an empty subgraph, not an error.
func (e *Engine) FindRelevantNeighborhood(ctx context.Context, names []string, graphID string) (*graph.Subgraph, error) {
	return e.Neighborhood(ctx, graphID, names, e.hops)
}

// Neighborhood is FindRelevantNeighborhood with an explicit radius
func (e *Engine) Neighborhood(ctx context.Context, graphID string, names []string, hops int) (*graph.Subgraph, error) {
	if err := graph.ValidateGraphID(graphID); err != nil {
		e.observer.ObserveNeighborhood(StatusError, 0)
		return nil, err
	}
	if err := e.checkHops(hops); err != nil {
		e.observer.ObserveNeighborhood(StatusError, 0)
		return nil, err
	}
	snap, err := e.load(ctx, graphID)
	if err != nil {
		e.observer.ObserveNeighborhood(StatusError, 0)
		return nil, err
	}

	seeds := e.resolver.Resolve(names, snap.graph.Entities, e.threshold)
	sub := neighborhood.ExtractHops(snap.graph, seeds, hops)

	status := StatusFound
	if sub.IsEmpty() {
		status = StatusEmpty
	}
	e.observer.ObserveNeighborhood(status, len(sub.Entities))
	e.logger.Debug("Extracted neighborhood",
		zap.String("graph_id", graphID),
		zap.Strings("names", names),
		zap.Strings("seeds", seeds),
		zap.Int("hops", hops),
		zap.Int("entities", len(sub.Entities)),
		zap.Int("relationships", len(sub.Relationships)),
		zap.Int("frozen", len(sub.FrozenIDs())),
	)
	return sub, nil
}

// ApplyReplacement replaces original inside the stored graph with replacement.
//
// The replacement is checked before the store is touched; a malformed one is rejected whole.
// The write only succeeds if the graph is unchanged since it was read here. Otherwise a
// conflict error is returned, nothing is written and the caller should extract again.
func (e *Engine) ApplyReplacement(ctx context.Context, graphID string, original *graph.Subgraph, replacement *graph.Replacement) (*merge.Result, error) {
	if err := graph.ValidateGraphID(graphID); err != nil {
		e.observer.ObserveMerge(StatusInvalid, 0)
		return nil, err
	}
	if original == nil {
		original = graph.NewSubgraph()
	}
	if err := merge.Validate(original, replacement); err != nil {
		e.observer.ObserveMerge(StatusInvalid, 0)
		e.logger.Warn("Rejected malformed replacement", zap.String("graph_id", graphID), zap.Error(err))
		return nil, err
	}

	// Not through load: a merge must see the latest version
	snap, err := e.read(ctx, graphID)
	if err != nil {
		e.observer.ObserveMerge(StatusError, 0)
		return nil, err
	}

	updated, result, err := merge.Apply(snap.graph, original, replacement, e.ids)
	if err != nil {
		e.observer.ObserveMerge(statusOf(err), 0)
		return nil, err
	}

	data, err := graph.Encode(updated)
	if err != nil {
		e.observer.ObserveMerge(StatusError, 0)
		return nil, err
	}
	key := store.Key(graphID)
	if _, err := e.store.Put(ctx, key, data, snap.version); err != nil {
		e.observer.ObserveMerge(statusOf(err), 0)
		if kberrors.IsConflict(err) {
			e.logger.Warn("Graph changed during merge", zap.String("graph_id", graphID))
		}
		return nil, err
	}

	e.observer.ObserveMerge(StatusOK, result.EntitiesAllocated)
	e.logger.Info("Merged replacement",
		zap.String("graph_id", graphID),
		zap.Int("entities_removed", result.EntitiesRemoved),
		zap.Int("entities_written", result.EntitiesWritten),
		zap.Int("relationships_removed", result.RelationshipsRemoved),
		zap.Int("relationships_written", result.RelationshipsWritten),
		zap.Int("entities_allocated", result.EntitiesAllocated),
	)
	return result, nil
}

// Describe renders the neighborhood of names as prompt text
func (e *Engine) Describe(ctx context.Context, graphID string, names []string) (string, error) {
	sub, err := e.FindRelevantNeighborhood(ctx, names, graphID)
	if err != nil {
		return "", err
	}
	return render.Describe(sub), nil
}

// ExpandQuery renders the neighborhood of names followed by the graph id, the form handed to
// a model that may later patch the graph. It returns "" when nothing is known.
func (e *Engine) ExpandQuery(ctx context.Context, graphID string, names []string) (string, error) {
	sub, err := e.FindRelevantNeighborhood(ctx, names, graphID)
	if err != nil {
		return "", err
	}
	if sub.IsEmpty() {
		return "", nil
	}
	return render.ExpandQuery(sub, graphID), nil
}

// Graph returns the whole stored graph and its version ("" when nothing is stored)
func (e *Engine) Graph(ctx context.Context, graphID string) (*graph.Graph, string, error) {
	if err := graph.ValidateGraphID(graphID); err != nil {
		return nil, "", err
	}
	snap, err := e.read(ctx, graphID)
	if err != nil {
		return nil, "", err
	}
	return snap.graph, snap.version, nil
}

// Import overwrites the stored graph with g, regardless of what is stored
func (e *Engine) Import(ctx context.Context, graphID string, g *graph.Graph) (string, error) {
	if err := graph.ValidateGraphID(graphID); err != nil {
		return "", err
	}
	if err := graph.ValidateGraph(g); err != nil {
		return "", err
	}
	data, err := graph.Encode(g)
	if err != nil {
		return "", err
	}
	version, err := e.store.Put(ctx, store.Key(graphID), data, store.AnyVersion)
	if err != nil {
		return "", err
	}
	e.logger.Info("Imported graph",
		zap.String("graph_id", graphID),
		zap.Int("entities", len(g.Entities)),
		zap.Int("relationships", len(g.Relationships)),
	)
	return version, nil
}

func statusOf(err error) string {
	switch {
	case kberrors.IsConflict(err):
		return StatusConflict
	case kberrors.IsInput(err):
		return StatusInvalid
	default:
		return StatusError
	}
}
